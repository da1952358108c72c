package permission

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/cjeanneret/SnapGo/internal/debug"
)

// Capability identifies a platform resource a session may ask access to.
type Capability string

const (
	CapabilityCamera     Capability = "camera"
	CapabilityMicrophone Capability = "microphone"
)

// Gatekeeper mediates access requests to platform capabilities.
// Request blocks until the platform (or the user) answers.
type Gatekeeper interface {
	// Request asks for access to the capability. It returns whether access
	// was granted; an error means the request itself could not be carried
	// out (callers should treat that as denied).
	Request(ctx context.Context, cap Capability) (bool, error)
}

// StaticGatekeeper answers from a fixed grant table, for headless
// deployments where access is decided by configuration.
type StaticGatekeeper struct {
	Grants map[Capability]bool
}

func (s *StaticGatekeeper) Request(_ context.Context, cap Capability) (bool, error) {
	granted := s.Grants[cap]
	debug.Perm(string(cap), granted)
	return granted, nil
}

// ExecGatekeeper delegates the request to an external prompter command
// (e.g. a zenity question dialog). The capability is appended as the last
// argument. Exit status 0 means granted, exit status 1 means denied, and
// anything else is a failure of the prompter itself.
type ExecGatekeeper struct {
	Command []string
}

func (e *ExecGatekeeper) Request(ctx context.Context, cap Capability) (bool, error) {
	if len(e.Command) == 0 {
		return false, fmt.Errorf("no prompter command configured")
	}

	args := append(append([]string{}, e.Command[1:]...), string(cap))
	debug.Verbose("Prompter: %s %v", e.Command[0], args)

	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	err := cmd.Run()
	if err == nil {
		debug.Perm(string(cap), true)
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		debug.Perm(string(cap), false)
		return false, nil
	}
	return false, fmt.Errorf("prompter failed: %w", err)
}

// MockGatekeeper is a test implementation with a scripted answer and a
// request counter.
type MockGatekeeper struct {
	Granted bool
	Err     error

	mu       sync.Mutex
	requests []Capability
}

func (m *MockGatekeeper) Request(_ context.Context, cap Capability) (bool, error) {
	m.mu.Lock()
	m.requests = append(m.requests, cap)
	m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	return m.Granted, nil
}

// Requests returns the capabilities requested so far, in order.
func (m *MockGatekeeper) Requests() []Capability {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Capability, len(m.requests))
	copy(out, m.requests)
	return out
}

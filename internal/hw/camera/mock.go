package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cjeanneret/SnapGo/internal/debug"
)

// MockDriver is a capture driver for development on PC and for testing.
// Stills and videos are placeholder files written to OutputDir. Failure
// flags script the error paths.
type MockDriver struct {
	OutputDir string

	FailCapture bool
	FailStart   bool
	FailStop    bool

	mu         sync.Mutex
	recording  bool
	onFinished func(string)
	onError    func(error)
	calls      []string
}

// NewMockDriver creates a mock capture driver writing placeholders to dir.
func NewMockDriver(dir string) *MockDriver {
	debug.Info("Using MOCK capture driver (development mode)")
	return &MockDriver{OutputDir: dir}
}

func (m *MockDriver) record(call string) {
	m.calls = append(m.calls, call)
}

// Calls returns the driver calls seen so far, in order.
func (m *MockDriver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockDriver) placeholder(prefix, ext string) (string, error) {
	if err := os.MkdirAll(m.OutputDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s%s", prefix, time.Now().Format("20060102-150405.000000"), ext)
	path := filepath.Join(m.OutputDir, name)
	if err := os.WriteFile(path, []byte("mock capture\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// CapturePhoto writes a placeholder still and returns its path.
func (m *MockDriver) CapturePhoto(_ context.Context, facing Facing) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("capture:" + string(facing))

	if m.FailCapture {
		return "", fmt.Errorf("mock: capture failed")
	}
	return m.placeholder("photo", ".jpg")
}

// StartRecording remembers the callbacks; StopRecording fires onFinished.
func (m *MockDriver) StartRecording(_ context.Context, facing Facing, onFinished func(path string), onError func(err error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("start:" + string(facing))

	if m.FailStart {
		return fmt.Errorf("mock: start recording failed")
	}
	if m.recording {
		return fmt.Errorf("recording already in progress")
	}
	m.recording = true
	m.onFinished = onFinished
	m.onError = onError
	return nil
}

// StopRecording ends the mock recording and dispatches onFinished with a
// placeholder video file, mirroring the asynchronous outcome of a real body.
func (m *MockDriver) StopRecording() error {
	m.mu.Lock()
	m.record("stop")

	if m.FailStop {
		m.mu.Unlock()
		return fmt.Errorf("mock: stop recording failed")
	}
	if !m.recording {
		m.mu.Unlock()
		return fmt.Errorf("no recording in progress")
	}
	m.recording = false
	onFinished := m.onFinished
	onError := m.onError
	m.mu.Unlock()

	path, err := m.placeholder("video", ".mp4")
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return nil
	}
	if onFinished != nil {
		onFinished(path)
	}
	return nil
}

// FireRecordingError simulates the device breaking mid-recording.
func (m *MockDriver) FireRecordingError(err error) {
	m.mu.Lock()
	onError := m.onError
	m.recording = false
	m.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

package permission

import (
	"context"
	"errors"
	"testing"
)

func TestStaticGatekeeper(t *testing.T) {
	gk := &StaticGatekeeper{Grants: map[Capability]bool{
		CapabilityCamera: true,
	}}

	granted, err := gk.Request(context.Background(), CapabilityCamera)
	if err != nil {
		t.Fatalf("Request(camera): %v", err)
	}
	if !granted {
		t.Error("camera should be granted")
	}

	// Absent capabilities are denied, not errors.
	granted, err = gk.Request(context.Background(), CapabilityMicrophone)
	if err != nil {
		t.Fatalf("Request(microphone): %v", err)
	}
	if granted {
		t.Error("microphone should be denied")
	}
}

func TestExecGatekeeper_NoCommand(t *testing.T) {
	gk := &ExecGatekeeper{}
	if _, err := gk.Request(context.Background(), CapabilityCamera); err == nil {
		t.Error("empty command should fail the request")
	}
}

func TestExecGatekeeper_ExitCodes(t *testing.T) {
	tests := []struct {
		name        string
		command     []string
		wantGranted bool
		wantErr     bool
	}{
		{"exit 0 grants", []string{"true"}, true, false},
		{"exit 1 denies", []string{"false"}, false, false},
		{"exit 2 fails", []string{"sh", "-c", "exit 2"}, false, true},
		{"missing binary fails", []string{"/nonexistent/prompter"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gk := &ExecGatekeeper{Command: tt.command}
			granted, err := gk.Request(context.Background(), CapabilityCamera)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if granted != tt.wantGranted {
				t.Errorf("granted = %v, want %v", granted, tt.wantGranted)
			}
		})
	}
}

func TestMockGatekeeper_CountsRequests(t *testing.T) {
	gk := &MockGatekeeper{Granted: true}

	if _, err := gk.Request(context.Background(), CapabilityCamera); err != nil {
		t.Fatal(err)
	}
	if _, err := gk.Request(context.Background(), CapabilityMicrophone); err != nil {
		t.Fatal(err)
	}

	reqs := gk.Requests()
	if len(reqs) != 2 || reqs[0] != CapabilityCamera || reqs[1] != CapabilityMicrophone {
		t.Errorf("requests = %v", reqs)
	}
}

func TestMockGatekeeper_ScriptedError(t *testing.T) {
	gk := &MockGatekeeper{Err: errors.New("portal down")}
	granted, err := gk.Request(context.Background(), CapabilityCamera)
	if err == nil {
		t.Fatal("expected scripted error")
	}
	if granted {
		t.Error("a failed request must not grant")
	}
}

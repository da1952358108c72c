package camera

import (
	"context"
	"fmt"
)

// Facing selects which physical camera is active (front or back).
type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

// Flip returns the opposite facing.
func (f Facing) Flip() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// ParseFacing validates a facing string from config or HTTP input.
func ParseFacing(s string) (Facing, error) {
	switch Facing(s) {
	case FacingFront:
		return FacingFront, nil
	case FacingBack:
		return FacingBack, nil
	default:
		return "", fmt.Errorf("unknown facing: %q (want front or back)", s)
	}
}

// AssetKind tags a captured artifact as a still photo or a video.
type AssetKind string

const (
	KindPhoto AssetKind = "photo"
	KindVideo AssetKind = "video"
)

// Driver is the high-level interface used by the rest of the application.
// It represents an abstract capture device, regardless of how it's
// controlled (V4L2 via ffmpeg, GPIO remote release, mock, etc.).
//
// A driver owns at most one recording at a time. StartRecording registers
// two asynchronous outcomes: onFinished fires with the video path once the
// recording is finalized, onError fires if the recording breaks mid-flight.
// Exactly one of the two is invoked per recording.
type Driver interface {
	// CapturePhoto captures a single still and returns the file path.
	CapturePhoto(ctx context.Context, facing Facing) (string, error)

	// StartRecording begins video capture on the device selected by facing.
	StartRecording(ctx context.Context, facing Facing, onFinished func(path string), onError func(err error)) error

	// StopRecording asks the device to end the active recording.
	StopRecording() error
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/SnapGo/internal/debug"
	"github.com/cjeanneret/SnapGo/internal/hw/camera"
	"github.com/cjeanneret/SnapGo/internal/hw/gallery"
	"github.com/cjeanneret/SnapGo/internal/hw/permission"
)

// Error taxonomy for session operations. Failures are recovered locally:
// the session records a user-facing message, stays usable, and returns the
// wrapped error for callers that want it.
var (
	ErrPermissionDenied = errors.New("camera permission not granted")
	ErrCaptureFailed    = errors.New("capture failed")
	ErrPersistFailed    = errors.New("gallery persistence failed")
	ErrRecordingFailed  = errors.New("recording failed")
)

// User-facing messages recorded in the snapshot and sent to the notifier.
const (
	msgPermissionDenied = "Camera permission denied"
	msgPermissionFailed = "Failed to request camera permission"
	msgPhotoFailed      = "Failed to take photo"
	msgPhotoSaveFailed  = "Failed to save photo"
	msgRecordFailed     = "Failed to record video"
	msgVideoSaveFailed  = "Failed to save video"
	msgStopFailed       = "Failed to stop recording"
)

// Asset is the most recent successfully captured artifact. At most one is
// remembered; every new capture overwrites it, even when a later gallery
// export fails ("captured but not exported" stays representable).
type Asset struct {
	Path string           `json:"path"`
	Kind camera.AssetKind `json:"kind"`
}

// Notifier receives user-facing notices (permission denials, capture
// results, errors). It replaces blocking alerts: the session emits events
// and the presentation layer decides how to surface them.
type Notifier interface {
	Notify(level, msg string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level, msg string)

func (f NotifierFunc) Notify(level, msg string) { f(level, msg) }

// Options configures optional per-event hooks. Each hook is called at most
// once per event, on the goroutine the event resolves on.
type Options struct {
	Notifier        Notifier     // nil disables notices
	OnPhotoTaken    func(Asset)  // after a still is captured (before export)
	OnVideoRecorded func(Asset)  // after a recording is finalized (before export)
}

// Snapshot is a read-only copy of the session state for rendering.
type Snapshot struct {
	Facing            camera.Facing `json:"facing"`
	PermissionGranted bool          `json:"permission_granted"`
	Recording         bool          `json:"recording"`
	LastAsset         *Asset        `json:"last_asset,omitempty"`
	LastError         string        `json:"last_error,omitempty"`
}

// Controller owns one capture session: facing selection, permission state,
// recording state, the last captured asset and the last error. It mediates
// between a view (web handlers, CLI) and the camera, permission and gallery
// seams.
//
// Methods are safe for concurrent use but captures are not serialized
// against each other: two overlapping TakePhoto calls are two independent
// capture tasks and the last writer wins, the camera hardware being the
// true serialization point.
type Controller struct {
	driver   camera.Driver
	perms    permission.Gatekeeper
	exporter gallery.Exporter
	opts     Options

	mu        sync.Mutex
	facing    camera.Facing
	permitted bool
	recording bool
	lastAsset *Asset
	lastErr   string
}

// New creates a session controller. The caller should invoke
// RequestPermission once right after construction, mirroring a capture
// surface asking for access when it appears.
func New(driver camera.Driver, perms permission.Gatekeeper, exporter gallery.Exporter, facing camera.Facing, opts Options) *Controller {
	return &Controller{
		driver:   driver,
		perms:    perms,
		exporter: exporter,
		opts:     opts,
		facing:   facing,
	}
}

func (c *Controller) notify(level, msg string) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(level, msg)
	}
}

// fail records a user-facing failure message and emits it.
func (c *Controller) fail(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
	c.notify("error", msg)
}

// RequestPermission asks the platform for camera access and records the
// result. A request that itself fails is treated as denied.
func (c *Controller) RequestPermission(ctx context.Context) bool {
	granted, err := c.perms.Request(ctx, permission.CapabilityCamera)
	if err != nil {
		debug.Error(err)
		c.mu.Lock()
		c.permitted = false
		c.mu.Unlock()
		c.fail(msgPermissionFailed)
		return false
	}

	c.mu.Lock()
	c.permitted = granted
	if granted {
		c.lastErr = ""
	}
	c.mu.Unlock()

	if !granted {
		c.notify("warn", msgPermissionDenied)
		return false
	}
	debug.Live("Camera permission granted")
	return true
}

// TakePhoto captures a still through the driver and exports it to the
// media library. Without permission the call requests permission instead
// and captures nothing. The captured path is remembered even when the
// export later fails.
func (c *Controller) TakePhoto(ctx context.Context) error {
	c.mu.Lock()
	permitted, facing := c.permitted, c.facing
	c.mu.Unlock()

	if !permitted {
		c.RequestPermission(ctx)
		return ErrPermissionDenied
	}

	path, err := c.driver.CapturePhoto(ctx, facing)
	if err != nil {
		debug.Error(err)
		c.fail(msgPhotoFailed)
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	asset := Asset{Path: path, Kind: camera.KindPhoto}
	c.mu.Lock()
	c.lastAsset = &asset
	c.lastErr = ""
	c.mu.Unlock()
	c.notify("info", "Photo captured")
	if c.opts.OnPhotoTaken != nil {
		c.opts.OnPhotoTaken(asset)
	}

	if err := c.exporter.Export(ctx, path, camera.KindPhoto); err != nil {
		debug.Error(err)
		c.fail(msgPhotoSaveFailed)
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	c.notify("info", "Photo saved to gallery")
	return nil
}

// StartRecording begins video capture. Without permission the call
// requests permission instead. The recording resolves later through the
// driver's finished or error outcome.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	permitted, facing := c.permitted, c.facing
	c.mu.Unlock()

	if !permitted {
		c.RequestPermission(ctx)
		return ErrPermissionDenied
	}

	// Enter the recording state before handing control to the driver:
	// drivers resolve outcomes from a goroutine spawned inside
	// StartRecording, so a recording that breaks instantly can fire its
	// callback before this call returns. The callbacks own the flag from
	// here on; a driver error rolls the transition back.
	c.mu.Lock()
	c.recording = true
	c.lastErr = ""
	c.mu.Unlock()

	if err := c.driver.StartRecording(ctx, facing, c.recordingFinished, c.recordingBroke); err != nil {
		debug.Error(err)
		c.mu.Lock()
		c.recording = false
		c.mu.Unlock()
		c.fail(msgRecordFailed)
		return fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}

	debug.Live("Recording started (facing=%s)", facing)
	c.notify("info", "Recording started")
	return nil
}

// recordingFinished handles the driver's recording-finished outcome:
// remember the video and export it. The asset is remembered even when the
// export fails.
func (c *Controller) recordingFinished(path string) {
	asset := Asset{Path: path, Kind: camera.KindVideo}
	c.mu.Lock()
	c.lastAsset = &asset
	c.lastErr = ""
	c.recording = false
	c.mu.Unlock()
	c.notify("info", "Recording finished")
	if c.opts.OnVideoRecorded != nil {
		c.opts.OnVideoRecorded(asset)
	}

	if err := c.exporter.Export(context.Background(), path, camera.KindVideo); err != nil {
		debug.Error(err)
		c.fail(msgVideoSaveFailed)
		return
	}
	c.notify("info", "Video saved to gallery")
}

// recordingBroke handles the driver's recording-error outcome. The
// recording flag resets so the session is immediately usable again.
func (c *Controller) recordingBroke(err error) {
	debug.Error(err)
	c.mu.Lock()
	c.recording = false
	c.mu.Unlock()
	c.fail(msgRecordFailed)
}

// StopRecording asks the driver to end the active recording. Whatever the
// driver answers, the session leaves the recording state.
func (c *Controller) StopRecording(_ context.Context) error {
	err := c.driver.StopRecording()

	c.mu.Lock()
	c.recording = false
	if err == nil {
		c.lastErr = ""
	}
	c.mu.Unlock()

	if err != nil {
		debug.Error(err)
		c.fail(msgStopFailed)
		return fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}
	c.notify("info", "Recording stopped")
	return nil
}

// ToggleFacing flips between the front and back camera. It performs no
// device I/O and never fails; the driver picks up the new facing on the
// next capture.
func (c *Controller) ToggleFacing() camera.Facing {
	c.mu.Lock()
	c.facing = c.facing.Flip()
	f := c.facing
	c.mu.Unlock()
	debug.Live("Facing switched to %s", f)
	return f
}

// State returns a copy of the current session state.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Facing:            c.facing,
		PermissionGranted: c.permitted,
		Recording:         c.recording,
		LastError:         c.lastErr,
	}
	if c.lastAsset != nil {
		a := *c.lastAsset
		s.LastAsset = &a
	}
	return s
}

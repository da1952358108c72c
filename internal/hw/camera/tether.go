package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cjeanneret/SnapGo/internal/debug"
	"github.com/cjeanneret/SnapGo/internal/hw/gpio"
	"github.com/cjeanneret/SnapGo/internal/logic/debounce"
)

// TetherConfig describes a DSLR body driven via its 3-pin remote connector:
// - GND: connected to Raspberry Pi ground
// - FOCUS: autofocus (activate by setting to LOW)
// - SHUTTER: trigger (activate by setting to LOW)
// The body is tethered: captured files land in TetherDir, where the driver
// picks them up once writes settle.
type TetherConfig struct {
	FocusPin     int
	ShutterPin   int
	FocusDelay   time.Duration // time for autofocus
	ShutterDelay time.Duration // shutter hold time
	TetherDir    string        // directory the tethering agent drops files into
	SettleDelay  time.Duration // quiet period before a dropped file counts as complete
	PhotoTimeout time.Duration // max wait for a still to land
	VideoTimeout time.Duration // max wait for a finished recording to land
}

// TetherDriver triggers a tethered DSLR through GPIO remote-release lines
// and returns the file the body drops into the tether directory.
//
// Trigger sequence:
// 1. FOCUS to LOW (activates autofocus)
// 2. Wait for autofocus to complete
// 3. SHUTTER to LOW (triggers the shot)
// 4. Hold for a moment
// 5. Set SHUTTER and FOCUS back to HIGH
//
// Video-capable bodies toggle movie recording on each shutter press, so a
// recording is press-to-start, press-again-to-stop; the finished file only
// appears in the tether directory after the second press.
type TetherDriver struct {
	gpio gpio.Driver
	cfg  TetherConfig

	mu        sync.Mutex
	recording bool
}

// NewTetherDriver creates a GPIO-triggered tethered camera driver.
func NewTetherDriver(g gpio.Driver, cfg TetherConfig) *TetherDriver {
	// Configure pins as outputs
	_ = g.SetupPin(cfg.FocusPin, gpio.Output)
	_ = g.SetupPin(cfg.ShutterPin, gpio.Output)

	// By default, lines are HIGH (inactive)
	_ = g.WritePin(cfg.FocusPin, gpio.High)
	_ = g.WritePin(cfg.ShutterPin, gpio.High)

	return &TetherDriver{gpio: g, cfg: cfg}
}

// trigger performs one full shutter press.
// Sequence: FOCUS -> wait for AF -> SHUTTER -> hold -> release
func (t *TetherDriver) trigger() error {
	debug.Printf("Tether: triggering shutter (focus=%d, shutter=%d)", t.cfg.FocusPin, t.cfg.ShutterPin)

	debug.Verbose("Tether: activating FOCUS (pin %d -> LOW)", t.cfg.FocusPin)
	if err := t.gpio.WritePin(t.cfg.FocusPin, gpio.Low); err != nil {
		return err
	}

	debug.Verbose("Tether: waiting for autofocus (%v)", t.cfg.FocusDelay)
	time.Sleep(t.cfg.FocusDelay)

	debug.Verbose("Tether: activating SHUTTER (pin %d -> LOW)", t.cfg.ShutterPin)
	if err := t.gpio.WritePin(t.cfg.ShutterPin, gpio.Low); err != nil {
		// Release FOCUS on error
		_ = t.gpio.WritePin(t.cfg.FocusPin, gpio.High)
		return err
	}

	debug.Verbose("Tether: holding shutter (%v)", t.cfg.ShutterDelay)
	time.Sleep(t.cfg.ShutterDelay)

	debug.Verbose("Tether: releasing SHUTTER (pin %d -> HIGH)", t.cfg.ShutterPin)
	if err := t.gpio.WritePin(t.cfg.ShutterPin, gpio.High); err != nil {
		return err
	}

	debug.Verbose("Tether: releasing FOCUS (pin %d -> HIGH)", t.cfg.FocusPin)
	return t.gpio.WritePin(t.cfg.FocusPin, gpio.High)
}

// waitForFile triggers the shutter and waits until the tether directory
// receives a file and its writes settle.
func (t *TetherDriver) waitForFile(ctx context.Context, timeout time.Duration) (string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("create tether watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(t.cfg.TetherDir); err != nil {
		return "", fmt.Errorf("watch tether dir %s: %w", t.cfg.TetherDir, err)
	}

	// Watch before triggering so the first write event is not missed.
	if err := t.trigger(); err != nil {
		return "", err
	}

	settled := make(chan string, 1)
	deb := debounce.New(t.cfg.SettleDelay)
	defer deb.Stop()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("tether watcher closed")
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			debug.Watch(ev.Op.String(), ev.Name)
			path := ev.Name
			deb.Trigger(func() {
				select {
				case settled <- path:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("tether watcher closed")
			}
			return "", fmt.Errorf("tether watch: %w", err)

		case path := <-settled:
			return path, nil

		case <-deadline.C:
			return "", fmt.Errorf("timed out waiting for tethered file in %s", t.cfg.TetherDir)

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// CapturePhoto presses the shutter and returns the file the body drops.
// The facing argument is accepted for interface symmetry; a tethered body
// has a single fixed orientation.
func (t *TetherDriver) CapturePhoto(ctx context.Context, _ Facing) (string, error) {
	return t.waitForFile(ctx, t.cfg.PhotoTimeout)
}

// StartRecording presses the shutter to start movie capture and spawns a
// goroutine that waits for the finished file (which only lands after the
// stop press). Exactly one of onFinished/onError fires.
func (t *TetherDriver) StartRecording(_ context.Context, _ Facing, onFinished func(path string), onError func(err error)) error {
	t.mu.Lock()
	if t.recording {
		t.mu.Unlock()
		return fmt.Errorf("recording already in progress")
	}
	t.recording = true
	t.mu.Unlock()

	go func() {
		path, err := t.waitForFile(context.Background(), t.cfg.VideoTimeout)
		t.mu.Lock()
		t.recording = false
		t.mu.Unlock()
		if err != nil {
			onError(fmt.Errorf("tether recording: %w", err))
			return
		}
		debug.Capture(string(KindVideo), path)
		onFinished(path)
	}()
	return nil
}

// StopRecording presses the shutter again; the body then flushes the video
// file to the tether directory, which resolves the waiting goroutine.
func (t *TetherDriver) StopRecording() error {
	t.mu.Lock()
	recording := t.recording
	t.mu.Unlock()
	if !recording {
		return fmt.Errorf("no recording in progress")
	}
	return t.trigger()
}

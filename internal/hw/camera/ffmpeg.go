package camera

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cjeanneret/SnapGo/internal/debug"
)

// FFmpegConfig describes the V4L2 devices and output settings for the
// ffmpeg-backed driver.
type FFmpegConfig struct {
	Devices   map[Facing]string // device path per facing, e.g. front: /dev/video0
	OutputDir string            // where captured files are written
	VideoSize string            // optional, e.g. "1280x720"
	FPS       int               // optional recording framerate
}

// FFmpegDriver captures stills and videos from V4L2 devices by shelling
// out to ffmpeg. Stills are one-shot commands; a recording is a child
// process that runs until StopRecording sends it an interrupt, at which
// point ffmpeg finalizes the container and exits.
type FFmpegDriver struct {
	cfg FFmpegConfig

	mu  sync.Mutex
	rec *ffmpegRecording
}

type ffmpegRecording struct {
	cmd     *exec.Cmd
	path    string
	stderr  *bytes.Buffer
	stopped bool
}

// NewFFmpegDriver creates an ffmpeg-backed capture driver.
func NewFFmpegDriver(cfg FFmpegConfig) *FFmpegDriver {
	return &FFmpegDriver{cfg: cfg}
}

func (d *FFmpegDriver) device(facing Facing) (string, error) {
	dev, ok := d.cfg.Devices[facing]
	if !ok || dev == "" {
		return "", fmt.Errorf("no device configured for facing %q", facing)
	}
	return dev, nil
}

func (d *FFmpegDriver) outputPath(prefix, ext string) string {
	name := fmt.Sprintf("%s-%s%s", prefix, time.Now().Format("20060102-150405.000"), ext)
	return filepath.Join(d.cfg.OutputDir, name)
}

// photoArgs builds the ffmpeg arguments for a single-frame capture.
func photoArgs(device, videoSize, out string) []string {
	args := []string{"-y", "-f", "v4l2"}
	if videoSize != "" {
		args = append(args, "-video_size", videoSize)
	}
	args = append(args, "-i", device, "-frames:v", "1", "-q:v", "2", out)
	return args
}

// recordArgs builds the ffmpeg arguments for a continuous recording.
func recordArgs(device, videoSize string, fps int, out string) []string {
	args := []string{"-y", "-f", "v4l2"}
	if videoSize != "" {
		args = append(args, "-video_size", videoSize)
	}
	if fps > 0 {
		args = append(args, "-r", strconv.Itoa(fps))
	}
	args = append(args, "-i", device, out)
	return args
}

// CapturePhoto grabs one frame from the device selected by facing.
func (d *FFmpegDriver) CapturePhoto(ctx context.Context, facing Facing) (string, error) {
	dev, err := d.device(facing)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	out := d.outputPath("photo", ".jpg")
	args := photoArgs(dev, d.cfg.VideoSize, out)
	debug.Verbose("ffmpeg %v", args)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg still capture failed: %w (stderr: %s)", err, stderr.String())
	}

	debug.Capture(string(KindPhoto), out)
	return out, nil
}

// StartRecording launches an ffmpeg child process writing to a video file.
// The process runs until StopRecording; it is deliberately not bound to ctx
// since an in-flight recording runs to completion or failure.
func (d *FFmpegDriver) StartRecording(ctx context.Context, facing Facing, onFinished func(path string), onError func(err error)) error {
	dev, err := d.device(facing)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	d.mu.Lock()
	if d.rec != nil {
		d.mu.Unlock()
		return fmt.Errorf("recording already in progress")
	}

	out := d.outputPath("video", ".mp4")
	args := recordArgs(dev, d.cfg.VideoSize, d.cfg.FPS, out)
	debug.Verbose("ffmpeg %v", args)

	cmd := exec.Command("ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("start ffmpeg recording: %w", err)
	}

	rec := &ffmpegRecording{cmd: cmd, path: out, stderr: &stderr}
	d.rec = rec
	d.mu.Unlock()

	go d.waitRecording(rec, onFinished, onError)
	return nil
}

// waitRecording reaps the ffmpeg process and dispatches exactly one of
// the two recording outcomes.
func (d *FFmpegDriver) waitRecording(rec *ffmpegRecording, onFinished func(string), onError func(error)) {
	err := rec.cmd.Wait()

	d.mu.Lock()
	stopped := rec.stopped
	if d.rec == rec {
		d.rec = nil
	}
	d.mu.Unlock()

	if stopped {
		// ffmpeg exits non-zero after an interrupt; the container is
		// finalized regardless, so a requested stop counts as finished.
		debug.Capture(string(KindVideo), rec.path)
		onFinished(rec.path)
		return
	}

	if err != nil {
		onError(fmt.Errorf("ffmpeg recording failed: %w (stderr: %s)", err, rec.stderr.String()))
		return
	}

	// Process ended on its own (device unplugged, disk full closing the
	// stream cleanly, ...). The file may still be usable.
	debug.Capture(string(KindVideo), rec.path)
	onFinished(rec.path)
}

// StopRecording interrupts the active ffmpeg process so it finalizes the
// output file. The recording-finished callback fires from the process waiter.
func (d *FFmpegDriver) StopRecording() error {
	d.mu.Lock()
	rec := d.rec
	if rec == nil {
		d.mu.Unlock()
		return fmt.Errorf("no recording in progress")
	}
	rec.stopped = true
	d.mu.Unlock()

	if err := rec.cmd.Process.Signal(os.Interrupt); err != nil {
		return fmt.Errorf("stop ffmpeg recording: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/SnapGo/internal/config"
	"github.com/cjeanneret/SnapGo/internal/debug"
	"github.com/cjeanneret/SnapGo/internal/hw/camera"
	"github.com/cjeanneret/SnapGo/internal/hw/gallery"
	"github.com/cjeanneret/SnapGo/internal/hw/gpio"
	"github.com/cjeanneret/SnapGo/internal/hw/permission"
	"github.com/cjeanneret/SnapGo/internal/logic/session"
	"github.com/cjeanneret/SnapGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	facingOverride := flag.String("facing", "", "override initial camera facing (front or back)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Apply CLI overrides (empty means "use config default")
	if *facingOverride != "" {
		if _, err := camera.ParseFacing(*facingOverride); err != nil {
			log.Fatalf("invalid CLI override: %v", err)
		}
		cfg.Defaults.Facing = *facingOverride
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize capture driver
	debug.Step(1, "Initializing capture driver")
	driver, gpioDriver, err := newDriverFromConfig(cfg)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	if gpioDriver != nil {
		defer func() {
			if err := gpioDriver.Close(); err != nil {
				log.Printf("closing GPIO driver failed: %v", err)
			}
		}()
	}
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Output dir", cfg.Camera.OutputDir)

	// Initialize permission gatekeeper
	debug.Step(2, "Initializing permission gatekeeper")
	gatekeeper := newGatekeeperFromConfig(cfg)
	debug.Value("Permission mode", cfg.Permission.Mode)

	// Open the media index and select the export strategy
	debug.Step(3, "Opening media index")
	index, err := gallery.OpenIndex(cfg.Gallery.IndexDB)
	if err != nil {
		log.Fatalf("open media index failed: %v", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			log.Printf("closing media index failed: %v", err)
		}
	}()
	exporter := newExporterFromConfig(cfg, index)
	debug.Value("Gallery strategy", cfg.Gallery.Strategy)

	facing, err := camera.ParseFacing(cfg.Defaults.Facing)
	if err != nil {
		log.Fatalf("invalid facing: %v", err)
	}

	if port := webPort.port(); port > 0 {
		webAddr := fmt.Sprintf(":%d", port)
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		sess := session.New(driver, gatekeeper, exporter, facing, session.Options{
			Notifier: broadcaster,
		})
		debug.Step(4, "Requesting camera permission")
		sess.RequestPermission(ctx)

		// Hot-apply the debug level on config edits; driver selection
		// requires a restart.
		stopWatch, err := config.Watch(*cfgPath, func(fresh *config.Config) {
			debug.Init(fresh.Defaults.DebugLevel)
			debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		})
		if err != nil {
			log.Printf("config watch disabled: %v", err)
		} else {
			defer stopWatch()
		}

		srv := web.NewServer(webAddr, broadcaster, sess, index)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	{
		// One-shot: request permission, take a single photo, print its path
		sess := session.New(driver, gatekeeper, exporter, facing, session.Options{
			Notifier: session.NotifierFunc(func(level, msg string) {
				log.Printf("[%s] %s", level, msg)
			}),
			OnPhotoTaken: func(a session.Asset) {
				fmt.Println(a.Path)
			},
		})
		debug.Step(4, "Requesting camera permission")
		sess.RequestPermission(ctx)
		if err := sess.TakePhoto(ctx); err != nil {
			log.Fatalf("capture failed: %v", err)
		}
	}
}

// newDriverFromConfig selects a capture driver based on configuration.
// The gpio driver is returned separately so main can close it on exit.
func newDriverFromConfig(cfg *config.Config) (camera.Driver, gpio.Driver, error) {
	switch cfg.Camera.Type {
	case "ffmpeg":
		devices := map[camera.Facing]string{}
		if cfg.Camera.FrontDevice != "" {
			devices[camera.FacingFront] = cfg.Camera.FrontDevice
		}
		if cfg.Camera.BackDevice != "" {
			devices[camera.FacingBack] = cfg.Camera.BackDevice
		}
		return camera.NewFFmpegDriver(camera.FFmpegConfig{
			Devices:   devices,
			OutputDir: cfg.Camera.OutputDir,
			VideoSize: cfg.Camera.VideoSize,
			FPS:       cfg.Camera.FPS,
		}), nil, nil

	case "tether":
		g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, nil, err
		}
		drv := camera.NewTetherDriver(g, camera.TetherConfig{
			FocusPin:     cfg.Tether.FocusPin,
			ShutterPin:   cfg.Tether.ShutterPin,
			FocusDelay:   cfg.FocusDelay(),
			ShutterDelay: cfg.ShutterDelay(),
			TetherDir:    cfg.Tether.TetherDir,
			SettleDelay:  cfg.SettleDelay(),
			PhotoTimeout: cfg.PhotoTimeout(),
			VideoTimeout: cfg.VideoTimeout(),
		})
		return drv, g, nil

	case "mock":
		return camera.NewMockDriver(cfg.Camera.OutputDir), nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// newGatekeeperFromConfig selects a permission gatekeeper based on configuration.
func newGatekeeperFromConfig(cfg *config.Config) permission.Gatekeeper {
	if cfg.Permission.Mode == "exec" {
		return &permission.ExecGatekeeper{Command: cfg.Permission.Command}
	}
	return &permission.StaticGatekeeper{Grants: map[permission.Capability]bool{
		permission.CapabilityCamera:     cfg.Permission.CameraGranted,
		permission.CapabilityMicrophone: cfg.Permission.MicrophoneGranted,
	}}
}

// newExporterFromConfig selects a gallery export strategy based on configuration.
func newExporterFromConfig(cfg *config.Config, index *gallery.Index) gallery.Exporter {
	if cfg.Gallery.Strategy == "staged" {
		return &gallery.StagedExporter{Index: index, PublicDir: cfg.Gallery.PublicDir}
	}
	return &gallery.DirectExporter{Index: index}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }

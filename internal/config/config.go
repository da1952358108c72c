package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig selects and configures the capture driver.
// Type selects a concrete implementation ("ffmpeg", "tether" or "mock").
type CameraConfig struct {
	Type        string `yaml:"type"`         // "ffmpeg", "tether" or "mock"
	FrontDevice string `yaml:"front_device"` // V4L2 device for the front camera (ffmpeg)
	BackDevice  string `yaml:"back_device"`  // V4L2 device for the back camera (ffmpeg)
	OutputDir   string `yaml:"output_dir"`   // where captured files are written
	VideoSize   string `yaml:"video_size"`   // optional, e.g. "1280x720"
	FPS         int    `yaml:"fps"`          // optional recording framerate
}

// TetherConfig configures the GPIO-triggered tethered camera.
type TetherConfig struct {
	FocusPin       int    `yaml:"focus_pin"`        // GPIO pin for FOCUS line
	ShutterPin     int    `yaml:"shutter_pin"`      // GPIO pin for SHUTTER line
	FocusDelayMs   int    `yaml:"focus_delay_ms"`   // autofocus delay (ms)
	ShutterDelayMs int    `yaml:"shutter_delay_ms"` // shutter hold time (ms)
	TetherDir      string `yaml:"tether_dir"`       // directory the body drops files into
	SettleDelayMs  int    `yaml:"settle_delay_ms"`  // quiet period before a file counts as complete (ms)
	PhotoTimeoutS  int    `yaml:"photo_timeout_s"`  // max wait for a still (s)
	VideoTimeoutS  int    `yaml:"video_timeout_s"`  // max wait for a finished recording (s)
	// Note: GND is physically connected to Raspberry Pi ground
}

// PermissionConfig selects the gatekeeper answering capability requests.
type PermissionConfig struct {
	Mode              string   `yaml:"mode"`               // "static" or "exec"
	CameraGranted     bool     `yaml:"camera_granted"`     // static mode grant
	MicrophoneGranted bool     `yaml:"microphone_granted"` // static mode grant
	Command           []string `yaml:"command"`            // prompter command for exec mode
}

// GalleryConfig selects the export strategy and the media index location.
type GalleryConfig struct {
	Strategy  string `yaml:"strategy"`   // "direct" or "staged"
	PublicDir string `yaml:"public_dir"` // staging target for the staged strategy
	IndexDB   string `yaml:"index_db"`   // SQLite media index path
}

// DefaultsConfig contains generic parameters (debug level, etc.).
type DefaultsConfig struct {
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool   `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	Facing     string `yaml:"facing"`      // initial camera facing ("front" or "back")
}

// Config aggregates all application configuration.
type Config struct {
	Camera     CameraConfig     `yaml:"camera"`
	Tether     *TetherConfig    `yaml:"tether,omitempty"` // required when camera.type is "tether"
	Permission PermissionConfig `yaml:"permission"`
	Gallery    GalleryConfig    `yaml:"gallery"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	switch cfg.Camera.Type {
	case "ffmpeg":
		if cfg.Camera.BackDevice == "" && cfg.Camera.FrontDevice == "" {
			return nil, fmt.Errorf("camera.type ffmpeg requires front_device or back_device")
		}
	case "tether":
		if cfg.Tether == nil {
			return nil, fmt.Errorf("camera.type tether requires a tether section")
		}
		if cfg.Tether.FocusPin <= 0 || cfg.Tether.ShutterPin <= 0 {
			return nil, fmt.Errorf("tether.focus_pin and tether.shutter_pin must be > 0")
		}
		if cfg.Tether.TetherDir == "" {
			return nil, fmt.Errorf("tether.tether_dir is required")
		}
	case "mock":
		// nothing to validate
	case "":
		return nil, fmt.Errorf("camera.type is required")
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}

	if cfg.Camera.OutputDir == "" {
		cfg.Camera.OutputDir = "captures"
	}
	if cfg.Camera.FPS < 0 || cfg.Camera.FPS > 120 {
		return nil, fmt.Errorf("camera.fps must be between 0 and 120, got %d", cfg.Camera.FPS)
	}

	// Default values for tether timing
	if cfg.Tether != nil {
		if cfg.Tether.FocusDelayMs <= 0 {
			cfg.Tether.FocusDelayMs = 500 // 500ms for autofocus
		}
		if cfg.Tether.ShutterDelayMs <= 0 {
			cfg.Tether.ShutterDelayMs = 200 // 200ms shutter hold
		}
		if cfg.Tether.SettleDelayMs <= 0 {
			cfg.Tether.SettleDelayMs = 300 // 300ms write settle
		}
		if cfg.Tether.PhotoTimeoutS <= 0 {
			cfg.Tether.PhotoTimeoutS = 10
		}
		if cfg.Tether.VideoTimeoutS <= 0 {
			cfg.Tether.VideoTimeoutS = 600
		}
	}

	switch cfg.Permission.Mode {
	case "":
		cfg.Permission.Mode = "static"
	case "static":
	case "exec":
		if len(cfg.Permission.Command) == 0 {
			return nil, fmt.Errorf("permission.mode exec requires permission.command")
		}
	default:
		return nil, fmt.Errorf("unsupported permission mode: %s", cfg.Permission.Mode)
	}

	switch cfg.Gallery.Strategy {
	case "":
		cfg.Gallery.Strategy = "direct"
	case "direct":
	case "staged":
		if cfg.Gallery.PublicDir == "" {
			return nil, fmt.Errorf("gallery.strategy staged requires gallery.public_dir")
		}
	default:
		return nil, fmt.Errorf("unsupported gallery strategy: %s", cfg.Gallery.Strategy)
	}
	if cfg.Gallery.IndexDB == "" {
		cfg.Gallery.IndexDB = "gallery.db"
	}

	if cfg.Defaults.Facing == "" {
		cfg.Defaults.Facing = "back"
	}
	if cfg.Defaults.Facing != "front" && cfg.Defaults.Facing != "back" {
		return nil, fmt.Errorf("defaults.facing must be front or back, got %q", cfg.Defaults.Facing)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

// FocusDelay returns the autofocus delay duration.
func (c *Config) FocusDelay() time.Duration {
	if c.Tether == nil {
		return 0
	}
	return time.Duration(c.Tether.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	if c.Tether == nil {
		return 0
	}
	return time.Duration(c.Tether.ShutterDelayMs) * time.Millisecond
}

// SettleDelay returns the tethered-file write settle duration.
func (c *Config) SettleDelay() time.Duration {
	if c.Tether == nil {
		return 0
	}
	return time.Duration(c.Tether.SettleDelayMs) * time.Millisecond
}

// PhotoTimeout returns the max wait for a tethered still.
func (c *Config) PhotoTimeout() time.Duration {
	if c.Tether == nil {
		return 0
	}
	return time.Duration(c.Tether.PhotoTimeoutS) * time.Second
}

// VideoTimeout returns the max wait for a tethered finished recording.
func (c *Config) VideoTimeout() time.Duration {
	if c.Tether == nil {
		return 0
	}
	return time.Duration(c.Tether.VideoTimeoutS) * time.Second
}

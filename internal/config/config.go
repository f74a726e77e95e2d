// Package config loads formcoach settings from a YAML file layered over
// defaults, then applies FORMCOACH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/transform"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig        `yaml:"server"`
	Database   DatabaseConfig      `yaml:"database"`
	Camera     CameraConfig        `yaml:"camera"`
	Detector   DetectorConfig      `yaml:"detector"`
	Screen     ScreenConfig        `yaml:"screen"`
	Smoothing  SmoothingConfig     `yaml:"smoothing"`
	Session    SessionConfig       `yaml:"session"`
	Plugins    PluginsConfig       `yaml:"plugins"`
	Thresholds analyzer.Thresholds `yaml:"thresholds"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CameraConfig selects the capture device. Mirrored flips the preview the way
// a front-facing camera is usually shown. MotionThreshold is the percentage
// of changed pixels below which the previous pose is reused; zero runs the
// detector on every frame.
type CameraConfig struct {
	DeviceID        int     `yaml:"device_id"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	Mirrored        bool    `yaml:"mirrored"`
	MotionThreshold float64 `yaml:"motion_threshold"`
}

// DetectorConfig locates the MediaPipe Pose service. Empty paths are
// searched for next to the binary and under the data directory.
type DetectorConfig struct {
	Python          string  `yaml:"python"`
	Script          string  `yaml:"script"`
	ModelComplexity int     `yaml:"model_complexity"`
	MinDetection    float64 `yaml:"min_detection_confidence"`
	MinTracking     float64 `yaml:"min_tracking_confidence"`
}

type ScreenConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type SmoothingConfig struct {
	Enabled bool    `yaml:"enabled"`
	Alpha   float64 `yaml:"alpha"`
}

type SessionConfig struct {
	// RestSeconds is the default rest between sets. It must be positive.
	RestSeconds int `yaml:"rest_seconds"`
}

// PluginsConfig locates event plugins. Each run is killed after
// TimeoutMS milliseconds.
type PluginsConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// DataDir returns ~/.formcoach, the home of the database and helper scripts.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".formcoach"
	}
	return filepath.Join(home, ".formcoach")
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Enabled: true, Addr: "127.0.0.1:8420"},
		Database: DatabaseConfig{Path: filepath.Join(DataDir(), "formcoach.db")},
		Camera:   CameraConfig{DeviceID: 0, Width: 640, Height: 480, FPS: 15, Mirrored: true, MotionThreshold: 1.0},
		Detector: DetectorConfig{
			ModelComplexity: 1,
			MinDetection:    0.5,
			MinTracking:     0.5,
		},
		Screen:     ScreenConfig{Width: 1280, Height: 720},
		Smoothing:  SmoothingConfig{Enabled: true, Alpha: transform.DefaultAlpha},
		Session:    SessionConfig{RestSeconds: 60},
		Plugins:    PluginsConfig{Dir: filepath.Join(DataDir(), "plugins"), TimeoutMS: 5000},
		Thresholds: analyzer.DefaultThresholds(),
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("FORMCOACH_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FORMCOACH_SERVER_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FORMCOACH_SERVER_ENABLED: %w", err)
		}
		cfg.Server.Enabled = b
	}
	if v := os.Getenv("FORMCOACH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FORMCOACH_CAMERA_DEVICE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FORMCOACH_CAMERA_DEVICE: %w", err)
		}
		cfg.Camera.DeviceID = n
	}
	if v := os.Getenv("FORMCOACH_CAMERA_FPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FORMCOACH_CAMERA_FPS: %w", err)
		}
		cfg.Camera.FPS = n
	}
	if v := os.Getenv("FORMCOACH_CAMERA_MIRRORED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FORMCOACH_CAMERA_MIRRORED: %w", err)
		}
		cfg.Camera.Mirrored = b
	}
	if v := os.Getenv("FORMCOACH_PYTHON"); v != "" {
		cfg.Detector.Python = v
	}
	if v := os.Getenv("FORMCOACH_MEDIAPIPE_SCRIPT"); v != "" {
		cfg.Detector.Script = v
	}
	if v := os.Getenv("FORMCOACH_PLUGIN_DIR"); v != "" {
		cfg.Plugins.Dir = v
	}
	if v := os.Getenv("FORMCOACH_SMOOTHING_ALPHA"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FORMCOACH_SMOOTHING_ALPHA: %w", err)
		}
		cfg.Smoothing.Alpha = f
	}
	if v := os.Getenv("FORMCOACH_REST_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FORMCOACH_REST_SECONDS: %w", err)
		}
		cfg.Session.RestSeconds = n
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.Enabled && c.Server.Addr == "" {
		return errors.New("server.addr is required when the server is enabled")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 || c.Camera.FPS > 60 {
		return fmt.Errorf("camera.fps must be in [1, 60], got %d", c.Camera.FPS)
	}
	if c.Camera.MotionThreshold < 0 || c.Camera.MotionThreshold > 100 {
		return fmt.Errorf("camera.motion_threshold must be in [0, 100], got %g", c.Camera.MotionThreshold)
	}
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return fmt.Errorf("screen size must be positive, got %gx%g", c.Screen.Width, c.Screen.Height)
	}
	if c.Smoothing.Alpha < 0 || c.Smoothing.Alpha >= 1 {
		return fmt.Errorf("smoothing.alpha must be in [0, 1), got %g", c.Smoothing.Alpha)
	}
	if c.Session.RestSeconds <= 0 {
		return fmt.Errorf("session.rest_seconds must be positive, got %d", c.Session.RestSeconds)
	}
	if c.Plugins.TimeoutMS <= 0 {
		return fmt.Errorf("plugins.timeout_ms must be positive, got %d", c.Plugins.TimeoutMS)
	}
	for name, v := range map[string]float64{
		"detector.min_detection_confidence": c.Detector.MinDetection,
		"detector.min_tracking_confidence":  c.Detector.MinTracking,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %g", name, v)
		}
	}
	return c.Thresholds.Validate()
}

// Viewport maps detector output from the camera image onto the screen.
func (c *Config) Viewport() transform.Viewport {
	return transform.Viewport{
		Image:    transform.Size{Width: float64(c.Camera.Width), Height: float64(c.Camera.Height)},
		Screen:   transform.Size{Width: c.Screen.Width, Height: c.Screen.Height},
		Mirrored: c.Camera.Mirrored,
	}
}

// Smoother returns the configured landmark smoother, or nil when smoothing
// is disabled.
func (c *Config) Smoother() *transform.Smoother {
	if !c.Smoothing.Enabled {
		return nil
	}
	return transform.NewSmoother(c.Smoothing.Alpha)
}

// PluginTimeout bounds a single plugin run.
func (c *Config) PluginTimeout() time.Duration {
	return time.Duration(c.Plugins.TimeoutMS) * time.Millisecond
}

// RestDuration is the rest period between sets.
func (c *Config) RestDuration() time.Duration {
	return time.Duration(c.Session.RestSeconds) * time.Second
}

// Package config loads and validates the signscribe YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Camera      CameraConfig      `yaml:"camera"`
	Detector    DetectorConfig    `yaml:"detector"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Store       StoreConfig       `yaml:"store"`
	Plugins     PluginsConfig     `yaml:"plugins"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address   string `yaml:"address"`
	StaticDir string `yaml:"static_dir"`
}

// CameraConfig holds capture settings.
type CameraConfig struct {
	// DeviceIDs are tried in order; the first device that opens is used.
	DeviceIDs       []int         `yaml:"device_ids"`
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	FPS             int           `yaml:"fps"`
	AdaptiveFPS     bool          `yaml:"adaptive_fps"`
	IdleFPS         int           `yaml:"idle_fps"`
	ActiveFPS       int           `yaml:"active_fps"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MotionThreshold float64       `yaml:"motion_threshold"` // percent of changed pixels
}

// DetectorConfig holds hand landmark extraction settings.
type DetectorConfig struct {
	ScriptPath    string  `yaml:"script_path"`
	PythonPath    string  `yaml:"python_path"`
	MaxHands      int     `yaml:"max_hands"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// ClassifierConfig selects and configures the symbol classifier.
type ClassifierConfig struct {
	Kind       string  `yaml:"kind"` // "template" or "process"
	Tolerance  float64 `yaml:"tolerance"`
	ScriptPath string  `yaml:"script_path"`
	PythonPath string  `yaml:"python_path"`
	ModelPath  string  `yaml:"model_path"`
}

// RecognitionConfig holds the smoothing and accumulation tunables.
//
// The timing values are carried for tuning and reporting; the processing loop
// applies only WindowSize and ConfidenceThreshold.
type RecognitionConfig struct {
	WindowSize          int           `yaml:"window_size"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	GestureInterval     time.Duration `yaml:"gesture_interval"`
	SpaceTimeout        time.Duration `yaml:"space_timeout"`
	LetterTimeout       time.Duration `yaml:"letter_timeout"`
	NoHandTimeout       time.Duration `yaml:"no_hand_timeout"`
	DebounceTimeout     time.Duration `yaml:"debounce_timeout"`
}

// StoreConfig holds the SQLite database location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PluginsConfig holds commit sink plugin settings.
type PluginsConfig struct {
	Dir      string          `yaml:"dir"`
	Timeout  time.Duration   `yaml:"timeout"`
	OnCommit []CommitBinding `yaml:"on_commit"`
}

// CommitBinding names a plugin action to run with every committed phrase.
type CommitBinding struct {
	Plugin string         `yaml:"plugin"`
	Action string         `yaml:"action"`
	Config map[string]any `yaml:"config"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signscribe"
	}
	return filepath.Join(home, ".signscribe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	dataDir := DefaultDataDir()

	return &Config{
		Server: ServerConfig{
			Address: ":5002",
		},
		Camera: CameraConfig{
			DeviceIDs:       []int{0, 1, 2, 3},
			Width:           640,
			Height:          480,
			FPS:             15,
			AdaptiveFPS:     false,
			IdleFPS:         5,
			ActiveFPS:       15,
			IdleTimeout:     2 * time.Second,
			MotionThreshold: 1.0,
		},
		Detector: DetectorConfig{
			MaxHands:      1,
			MinConfidence: 0.3,
		},
		Classifier: ClassifierConfig{
			Kind:      "template",
			Tolerance: 1.5,
		},
		Recognition: RecognitionConfig{
			WindowSize:          10,
			ConfidenceThreshold: 0.7,
			GestureInterval:     700 * time.Millisecond,
			SpaceTimeout:        time.Second,
			LetterTimeout:       2 * time.Second,
			NoHandTimeout:       time.Second,
			DebounceTimeout:     500 * time.Millisecond,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "signscribe.db"),
		},
		Plugins: PluginsConfig{
			Dir:     filepath.Join(dataDir, "plugins"),
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields keep their defaults.
// A leading tilde in file paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.Store.Path = expandTilde(cfg.Store.Path)
	cfg.Plugins.Dir = expandTilde(cfg.Plugins.Dir)
	cfg.Server.StaticDir = expandTilde(cfg.Server.StaticDir)
	cfg.Detector.ScriptPath = expandTilde(cfg.Detector.ScriptPath)
	cfg.Classifier.ScriptPath = expandTilde(cfg.Classifier.ScriptPath)
	cfg.Classifier.ModelPath = expandTilde(cfg.Classifier.ModelPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists and returns defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if err := c.Camera.Validate(); err != nil {
		return fmt.Errorf("camera config: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier config: %w", err)
	}
	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server config: address cannot be empty")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store config: path cannot be empty")
	}
	return nil
}

// Validate validates camera configuration.
func (c *CameraConfig) Validate() error {
	if len(c.DeviceIDs) == 0 {
		return fmt.Errorf("device_ids must not be empty")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.AdaptiveFPS {
		if c.IdleFPS <= 0 || c.ActiveFPS <= 0 {
			return fmt.Errorf("idle_fps and active_fps must be positive when adaptive_fps is set")
		}
		if c.MotionThreshold <= 0 {
			return fmt.Errorf("motion_threshold must be positive, got %f", c.MotionThreshold)
		}
	}
	return nil
}

// Validate validates classifier configuration.
func (c *ClassifierConfig) Validate() error {
	switch c.Kind {
	case "template":
		if c.Tolerance <= 0 {
			return fmt.Errorf("tolerance must be positive, got %f", c.Tolerance)
		}
	case "process":
		if c.ModelPath == "" {
			return fmt.Errorf("model_path is required for the process classifier")
		}
	default:
		return fmt.Errorf("kind must be \"template\" or \"process\", got %q", c.Kind)
	}
	return nil
}

// Validate validates recognition configuration.
func (r *RecognitionConfig) Validate() error {
	if r.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1, got %d", r.WindowSize)
	}
	if r.ConfidenceThreshold <= 0 || r.ConfidenceThreshold >= 1 {
		return fmt.Errorf("confidence_threshold must be in (0, 1), got %f", r.ConfidenceThreshold)
	}
	for name, d := range map[string]time.Duration{
		"gesture_interval": r.GestureInterval,
		"space_timeout":    r.SpaceTimeout,
		"letter_timeout":   r.LetterTimeout,
		"no_hand_timeout":  r.NoHandTimeout,
		"debounce_timeout": r.DebounceTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative, got %s", name, d)
		}
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be \"text\" or \"json\", got %q", l.Format)
	}
	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

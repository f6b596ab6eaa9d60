package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"whiteboard/internal/viewport"
)

// Config holds application configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	History   HistoryConfig   `mapstructure:"history"`
	Viewport  ViewportConfig  `mapstructure:"viewport"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
	Autosave  AutosaveConfig  `mapstructure:"autosave"`
	Import    ImportConfig    `mapstructure:"import"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// StorageConfig holds sqlite settings.
type StorageConfig struct {
	Path  string `mapstructure:"path"`
	Board string `mapstructure:"board"`
}

// HistoryConfig tunes undo/redo.
type HistoryConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Debounce time.Duration `mapstructure:"debounce"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Persist  bool          `mapstructure:"persist"`
}

// ViewportConfig bounds zoom and fit framing.
type ViewportConfig struct {
	MinZoom    float64 `mapstructure:"min_zoom"`
	MaxZoom    float64 `mapstructure:"max_zoom"`
	FitPadding float64 `mapstructure:"fit_padding"`
	FitMaxZoom float64 `mapstructure:"fit_max_zoom"`
}

// ClipboardConfig holds paste settings.
type ClipboardConfig struct {
	PasteOffset float64 `mapstructure:"paste_offset"`
	System      bool    `mapstructure:"system"`
	MaxImageKB  int     `mapstructure:"max_image_kb"`
}

// AutosaveConfig holds the flush schedule, a robfig/cron spec.
type AutosaveConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// ImportConfig holds the image inbox directory. Empty disables it.
type ImportConfig struct {
	WatchDir string `mapstructure:"watch_dir"`
}

// MCPConfig holds agent server settings.
type MCPConfig struct {
	// AutoApprove runs destructive agent tools without asking the desktop app.
	AutoApprove     bool          `mapstructure:"auto_approve"`
	ApprovalTimeout time.Duration `mapstructure:"approval_timeout"`
}

// ViewportOptions converts the config to controller options.
func (c ViewportConfig) ViewportOptions() viewport.Options {
	return viewport.Options{
		MinZoom:    c.MinZoom,
		MaxZoom:    c.MaxZoom,
		FitPadding: c.FitPadding,
		FitMaxZoom: c.FitMaxZoom,
	}
}

// Load reads configuration from file and env. Env var overrides use prefix WHITEBOARD_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("storage.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "whiteboard", "whiteboard.db"))
	v.SetDefault("storage.board", "default")
	v.SetDefault("history.capacity", 50)
	v.SetDefault("history.debounce", 100*time.Millisecond)
	v.SetDefault("history.cooldown", 300*time.Millisecond)
	v.SetDefault("history.persist", true)
	v.SetDefault("viewport.min_zoom", viewport.DefaultMinZoom)
	v.SetDefault("viewport.max_zoom", viewport.DefaultMaxZoom)
	v.SetDefault("viewport.fit_padding", viewport.DefaultFitPadding)
	v.SetDefault("viewport.fit_max_zoom", viewport.DefaultFitMaxZoom)
	v.SetDefault("clipboard.paste_offset", 20.0)
	v.SetDefault("clipboard.system", true)
	v.SetDefault("clipboard.max_image_kb", 500)
	v.SetDefault("autosave.schedule", "@every 2s")
	v.SetDefault("import.watch_dir", "")
	v.SetDefault("mcp.auto_approve", false)
	v.SetDefault("mcp.approval_timeout", 120*time.Second)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("WHITEBOARD_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "whiteboard"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("WHITEBOARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.History.Capacity < 1 {
		return fmt.Errorf("history.capacity must be at least 1, got %d", c.History.Capacity)
	}
	if c.Viewport.MinZoom <= 0 || c.Viewport.MaxZoom < c.Viewport.MinZoom {
		return fmt.Errorf("viewport zoom range [%v, %v] is invalid", c.Viewport.MinZoom, c.Viewport.MaxZoom)
	}
	if c.Storage.Board == "" {
		return fmt.Errorf("storage.board must not be empty")
	}
	return nil
}

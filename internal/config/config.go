// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/adrg/xdg"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// appName names the directory under $XDG_CONFIG_HOME.
const appName = "zwfm-screenrecorder"

// Configuration defaults are used when values are not specified.
const (
	DefaultFFmpegPath  = util.DefaultFFmpegPath
	DefaultDisplay     = ":0"
	DefaultStorageMode = types.StorageLocal
)

// SystemConfig holds settings for the external tools.
type SystemConfig struct {
	FFmpegPath string `json:"ffmpeg_path"` // Path to FFmpeg binary ("ffmpeg" = use PATH)
	Display    string `json:"display"`     // X display passed to x11grab
}

// S3Config holds S3-compatible storage settings for finished recordings.
type S3Config struct {
	Endpoint        string `json:"endpoint,omitempty"`          // Custom S3 endpoint (empty for AWS)
	Region          string `json:"region,omitempty"`            // Region, "auto" when empty
	Bucket          string `json:"bucket,omitempty"`            // S3 bucket name
	Prefix          string `json:"prefix,omitempty"`            // Key prefix for uploads
	AccessKeyID     string `json:"access_key_id,omitempty"`     // Access key ID
	SecretAccessKey string `json:"secret_access_key,omitempty"` // Secret access key
}

// IsConfigured reports whether the S3 settings are complete enough to upload.
func (c *S3Config) IsConfigured() bool {
	return util.IsConfigured(c.Bucket, c.AccessKeyID, c.SecretAccessKey)
}

// RecordingConfig holds where recordings go.
type RecordingConfig struct {
	OutputDir   string            `json:"output_dir"`   // Directory for default file names (empty = working directory)
	StorageMode types.StorageMode `json:"storage_mode"` // local, s3 or both
	HistoryLog  string            `json:"history_log"`  // JSON lines history (empty = XDG state dir, "-" = disabled)
	S3          S3Config          `json:"s3"`
}

// HistoryDisabled is the history_log value that turns the history off.
const HistoryDisabled = "-"

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL          string   `json:"url"`                     // Webhook URL for recording events
	TokenURL     string   `json:"token_url,omitempty"`     // OAuth2 token endpoint (optional)
	ClientID     string   `json:"client_id,omitempty"`     // OAuth2 client ID
	ClientSecret string   `json:"client_secret,omitempty"` // OAuth2 client secret
	Scopes       []string `json:"scopes,omitempty"`        // OAuth2 scopes
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook"`
}

// MonitorConfig holds the progress monitor settings.
type MonitorConfig struct {
	Listen string `json:"listen"` // host:port for the WebSocket monitor (empty = disabled)
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system"`
	Recording     RecordingConfig     `json:"recording"`
	Notifications NotificationsConfig `json:"notifications"`
	Monitor       MonitorConfig       `json:"monitor"`

	mu       sync.RWMutex
	filePath string
}

// DefaultPath returns the config file location under $XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(appName, "config.json"))
	if err != nil {
		return "", util.WrapError("resolve config path", err)
	}
	return path, nil
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{
			FFmpegPath: DefaultFFmpegPath,
			Display:    DefaultDisplay,
		},
		Recording: RecordingConfig{
			StorageMode: DefaultStorageMode,
		},
		filePath: filePath,
	}
}

// Path returns the file the configuration is read from.
func (c *Config) Path() string {
	return c.filePath
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	if err := c.validate(); err != nil {
		return err
	}

	return nil
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	switch c.Recording.StorageMode {
	case types.StorageLocal, types.StorageS3, types.StorageBoth:
	default:
		return fmt.Errorf("invalid storage_mode %q: must be one of local, s3, both", c.Recording.StorageMode)
	}
	if c.Recording.StorageMode.Uploads() && !c.Recording.S3.IsConfigured() {
		return fmt.Errorf("storage_mode %q requires s3 bucket, access_key_id and secret_access_key", c.Recording.StorageMode)
	}
	w := c.Notifications.Webhook
	if w.TokenURL != "" && !util.IsConfigured(w.ClientID, w.ClientSecret) {
		return fmt.Errorf("webhook token_url requires client_id and client_secret")
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	c.System.FFmpegPath = cmp.Or(c.System.FFmpegPath, DefaultFFmpegPath)
	c.System.Display = cmp.Or(c.System.Display, DefaultDisplay)
	c.Recording.StorageMode = cmp.Or(c.Recording.StorageMode, DefaultStorageMode)
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// Snapshot is a point-in-time copy of all configuration values.
type Snapshot struct {
	// System
	FFmpegPath string
	Display    string

	// Recording
	OutputDir   string
	StorageMode types.StorageMode
	HistoryLog  string
	S3          S3Config

	// Notifications
	Webhook WebhookConfig

	// Monitor
	MonitorListen string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	webhook := c.Notifications.Webhook
	webhook.Scopes = slices.Clone(webhook.Scopes)

	return Snapshot{
		FFmpegPath: cmp.Or(c.System.FFmpegPath, DefaultFFmpegPath),
		Display:    cmp.Or(c.System.Display, DefaultDisplay),

		OutputDir:   c.Recording.OutputDir,
		StorageMode: cmp.Or(c.Recording.StorageMode, DefaultStorageMode),
		HistoryLog:  c.Recording.HistoryLog,
		S3:          c.Recording.S3,

		Webhook: webhook,

		MonitorListen: c.Monitor.Listen,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.Webhook.URL != ""
}

// HasHistory reports whether recordings are written to the history log.
func (s *Snapshot) HasHistory() bool {
	return s.HistoryLog != HistoryDisabled
}

// HasUpload reports whether finished recordings should be uploaded.
func (s *Snapshot) HasUpload() bool {
	return s.StorageMode.Uploads() && s.S3.IsConfigured()
}

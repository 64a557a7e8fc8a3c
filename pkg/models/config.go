package models

import "time"

// Store backends.
const (
	StoreBackendYAML   = "yaml"
	StoreBackendSQLite = "sqlite"
)

// Clipboard modes.
const (
	ClipboardAuto    = "auto"
	ClipboardOSC52   = "osc52"
	ClipboardCommand = "command"
	ClipboardNone    = "none"
)

// WheelConfig holds the spin animation settings.
type WheelConfig struct {
	SpinDuration  time.Duration `yaml:"spin_duration" mapstructure:"spin_duration"`
	FullRotations int           `yaml:"full_rotations" mapstructure:"full_rotations"`
	StatusRevert  time.Duration `yaml:"status_revert" mapstructure:"status_revert"`
}

// StoreConfig selects the key-value backend for named participant lists.
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// ClipboardConfig selects how the assignment log is copied.
type ClipboardConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// SlackConfig holds the webhook used to announce finished sessions.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationsConfig groups outbound notification settings.
type NotificationsConfig struct {
	Slack SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// GlobalConfig holds system-wide settings read from .wheelconfig via Viper.
type GlobalConfig struct {
	Wheel         WheelConfig         `yaml:"wheel" mapstructure:"wheel"`
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Clipboard     ClipboardConfig     `yaml:"clipboard" mapstructure:"clipboard"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
}

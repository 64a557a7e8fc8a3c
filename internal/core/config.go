// Package core contains the business logic for the task wheel: the
// assignment engine with its fairness rule, the spin animator, ledger export
// and configuration loading.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// ConfigFileName is the name of the YAML configuration file in the base path.
const ConfigFileName = ".wheelconfig"

// EnvPrefix prefixes environment variables that override config keys.
const EnvPrefix = "WHEEL"

// ConfigurationManager defines the interface for loading and validating the
// global .wheelconfig file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the directory where .wheelconfig resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Wheel: models.WheelConfig{
			SpinDuration:  DefaultSpinDuration,
			FullRotations: DefaultFullRotations,
			StatusRevert:  2 * time.Second,
		},
		Store: models.StoreConfig{
			Backend: models.StoreBackendYAML,
			Path:    "store",
		},
		Clipboard: models.ClipboardConfig{
			Mode: models.ClipboardAuto,
		},
	}
}

// LoadGlobalConfig reads the .wheelconfig file from the base path using Viper.
// If the file does not exist, defaults are used. WHEEL_* environment
// variables override both, e.g. WHEEL_NOTIFICATIONS_SLACK_WEBHOOK_URL.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("wheel.spin_duration", cfg.Wheel.SpinDuration)
	v.SetDefault("wheel.full_rotations", cfg.Wheel.FullRotations)
	v.SetDefault("wheel.status_revert", cfg.Wheel.StatusRevert)
	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("clipboard.mode", cfg.Clipboard.Mode)
	v.SetDefault("notifications.slack.webhook_url", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg.Wheel.SpinDuration = v.GetDuration("wheel.spin_duration")
	cfg.Wheel.FullRotations = v.GetInt("wheel.full_rotations")
	cfg.Wheel.StatusRevert = v.GetDuration("wheel.status_revert")
	cfg.Store.Backend = strings.ToLower(v.GetString("store.backend"))
	cfg.Store.Path = v.GetString("store.path")
	cfg.Clipboard.Mode = strings.ToLower(v.GetString("clipboard.mode"))
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")

	return cfg, nil
}

var validBackends = map[string]bool{
	models.StoreBackendYAML:   true,
	models.StoreBackendSQLite: true,
}

var validClipboardModes = map[string]bool{
	models.ClipboardAuto:    true,
	models.ClipboardOSC52:   true,
	models.ClipboardCommand: true,
	models.ClipboardNone:    true,
}

// ValidateConfig checks the configuration for invalid values and returns an
// error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Wheel.SpinDuration <= 0 {
		errs = append(errs, fmt.Sprintf("wheel.spin_duration must be positive, got %s", cfg.Wheel.SpinDuration))
	}
	if cfg.Wheel.FullRotations < 1 {
		errs = append(errs, fmt.Sprintf("wheel.full_rotations must be at least 1, got %d", cfg.Wheel.FullRotations))
	}
	if cfg.Wheel.StatusRevert <= 0 {
		errs = append(errs, fmt.Sprintf("wheel.status_revert must be positive, got %s", cfg.Wheel.StatusRevert))
	}
	if !validBackends[cfg.Store.Backend] {
		errs = append(errs, fmt.Sprintf("store.backend %q is invalid, must be one of: yaml, sqlite", cfg.Store.Backend))
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		errs = append(errs, "store.path must not be empty")
	}
	if !validClipboardModes[cfg.Clipboard.Mode] {
		errs = append(errs, fmt.Sprintf("clipboard.mode %q is invalid, must be one of: auto, osc52, command, none", cfg.Clipboard.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

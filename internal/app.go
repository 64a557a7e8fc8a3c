// Package internal provides the App struct that wires the wheel's components
// together and initializes the CLI layer.
package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/task-wheel/internal/cli"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/internal/integration"
	"github.com/valter-silva-au/task-wheel/internal/observability"
	"github.com/valter-silva-au/task-wheel/internal/storage"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// EventLogFileName is the event log written under the base path.
const EventLogFileName = ".wheel_events.jsonl"

// App holds all service dependencies for the wheel.
type App struct {
	BasePath  string
	SessionID string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	Store storage.KVStore
	Lists storage.NamedListManager

	// Integration services
	Clipboard integration.Clipboard

	// Observability
	EventLog  observability.EventLog
	Events    core.EventLogger
	Stats     observability.StatsCalculator
	Announcer observability.Announcer

	stderr io.Writer
}

// NewApp creates and wires all application components for basePath.
// Store and event log failures degrade the app instead of failing it; an
// unreadable or invalid configuration is an error.
func NewApp(basePath string) (*App, error) {
	return newApp(basePath, os.Stderr)
}

func newApp(basePath string, stderr io.Writer) (*App, error) {
	app := &App{BasePath: basePath, SessionID: uuid.NewString(), stderr: stderr}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		fmt.Fprintf(stderr, "warning: event log disabled: %v\n", err)
		app.EventLog = nil
	}
	var warnings storage.WarningLogger
	if app.EventLog != nil {
		adapter := &eventLogAdapter{log: app.EventLog, session: app.SessionID}
		app.Events = adapter
		warnings = adapter
		app.Stats = observability.NewStatsCalculator(app.EventLog)
	}
	if url := cfg.Notifications.Slack.WebhookURL; url != "" {
		app.Announcer = observability.NewSlackAnnouncer(url)
	}

	// --- Storage layer ---
	storePath := cfg.Store.Path
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(basePath, storePath)
	}
	app.Store, err = storage.OpenKVStore(cfg.Store.Backend, storePath)
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v; saved lists will only last for this session\n", err)
		if warnings != nil {
			_ = warnings.LogWarning(storage.EventStoreReadFailed, err.Error(), map[string]any{"path": storePath})
		}
		app.Store = storage.NewMemoryKVStore()
	}
	app.Lists = storage.NewNamedListManager(app.Store, warnings)
	if err := app.Lists.Load(); err != nil {
		fmt.Fprintf(stderr, "warning: %v; starting with no saved lists\n", err)
	}

	// --- Integration services ---
	app.Clipboard, err = integration.NewClipboard(cfg.Clipboard.Mode, stderr)
	if err != nil {
		return nil, err
	}

	// --- Wire CLI package-level variables ---
	cli.Config = app.Config
	cli.Lists = app.Lists
	cli.Clipboard = app.Clipboard
	cli.Events = app.Events
	cli.Stats = app.Stats
	cli.Announcer = app.Announcer

	return app, nil
}

// Close releases the store and the event log. It is safe to call on an App
// whose EventLog is nil.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.EventLog != nil {
		errs = append(errs, a.EventLog.Close())
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the wheel's data directory. WHEEL_HOME wins,
// then the nearest directory up from the working directory holding a
// .wheelconfig file, then the user config directory.
func ResolveBasePath() string {
	if home := os.Getenv("WHEEL_HOME"); home != "" {
		return home
	}

	if dir, err := os.Getwd(); err == nil {
		for {
			if hasConfigFile(dir) {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if cfgDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(cfgDir, "wheel")
	}
	cwd, _ := os.Getwd()
	return cwd
}

func hasConfigFile(dir string) bool {
	for _, name := range []string{core.ConfigFileName, core.ConfigFileName + ".yaml", core.ConfigFileName + ".yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger and
// storage.WarningLogger, tagging every event with the process's session id.
type eventLogAdapter struct {
	log     observability.EventLog
	session string
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.write(observability.LevelInfo, eventType, eventType, data)
}

func (a *eventLogAdapter) LogWarning(eventType, message string, data map[string]any) error {
	return a.write(observability.LevelWarn, eventType, message, data)
}

func (a *eventLogAdapter) write(level, eventType, message string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Session: a.session,
		Message: message,
		Data:    data,
	})
}

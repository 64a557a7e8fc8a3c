package cli

import (
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/internal/integration"
	"github.com/valter-silva-au/task-wheel/internal/observability"
	"github.com/valter-silva-au/task-wheel/internal/storage"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	Config    *models.GlobalConfig
	Lists     storage.NamedListManager
	Clipboard integration.Clipboard
	Events    core.EventLogger
	Stats     observability.StatsCalculator
	Announcer observability.Announcer
)

// newEngine returns an engine that reports to Events.
func newEngine(opts ...core.EngineOption) *core.AssignmentEngine {
	if Events != nil {
		opts = append([]core.EngineOption{core.WithEventLogger(Events)}, opts...)
	}
	return core.NewAssignmentEngine(opts...)
}

// wheelConfig returns the configured wheel settings, or the defaults.
func wheelConfig() models.WheelConfig {
	if Config == nil {
		return core.DefaultGlobalConfig().Wheel
	}
	return Config.Wheel
}

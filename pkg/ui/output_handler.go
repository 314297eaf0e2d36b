package ui

import (
	"log/slog"
	"sync"

	"github.com/example/pluginhost/pkg/operator"
)

// triggerHandler logs the follow-up operators requested during Execute.
type triggerHandler struct {
	operator string
	logger   *slog.Logger
	mutex    sync.Mutex
}

// NewTriggerHandler returns a handler that logs triggers requested by the
// operator at uri.
func NewTriggerHandler(uri string, logger *slog.Logger) operator.TriggerHandler {
	return &triggerHandler{operator: uri, logger: logger}
}

func (h *triggerHandler) OnTrigger(name string, params map[string]any) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.logger.Info("operator requested trigger", "operator", h.operator, "trigger", name, "params", params)
	return nil
}

package service

import (
	"context"

	"github.com/rs/zerolog"
)

// Dispatcher hands a freshly created generation request to whatever executes
// it. The API process picks an implementation at startup.
type Dispatcher interface {
	Dispatch(requestID string)
}

// NoopDispatcher leaves pending requests for the worker process, which claims
// them from the database on its own schedule.
type NoopDispatcher struct{}

// Dispatch does nothing.
func (NoopDispatcher) Dispatch(string) {}

// GoDispatcher processes requests in-process on a goroutine. Useful for
// single-binary deployments without a separate worker.
type GoDispatcher struct {
	orchestrator *Orchestrator
	logger       zerolog.Logger
}

// NewGoDispatcher constructs an in-process dispatcher.
func NewGoDispatcher(orchestrator *Orchestrator, logger zerolog.Logger) *GoDispatcher {
	return &GoDispatcher{orchestrator: orchestrator, logger: logger}
}

// Dispatch runs the request in the background. The request outlives the HTTP
// call that created it, so processing gets a fresh context.
func (d *GoDispatcher) Dispatch(requestID string) {
	go func() {
		if err := d.orchestrator.Process(context.Background(), requestID); err != nil {
			d.logger.Error().Err(err).Str("request_id", requestID).Msg("background processing failed")
		}
	}()
}

var (
	_ Dispatcher = NoopDispatcher{}
	_ Dispatcher = (*GoDispatcher)(nil)
)

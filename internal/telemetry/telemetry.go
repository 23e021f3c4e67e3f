// Package telemetry emits usage events without blocking the main flow.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event actions
const (
	ActionRun              = "dbt_ci_action_run"
	ActionDownstreamUnfurl = "dbt_ci_action_downstream_unfurl"
	ActionFailure          = "dbt_ci_action_failure"
)

// Failure reasons
const (
	ReasonGetAsset           = "failed_to_get_asset"
	ReasonFetchLineage       = "failed_to_fetch_lineage"
	ReasonGetClassifications = "failed_to_get_classifications"
	ReasonCreateResource     = "failed_to_create_resource"
)

const sendTimeout = 10 * time.Second

// Event is one usage event
type Event struct {
	Action     string
	Properties map[string]any
}

// Failure builds a failure event with the given reason and extra properties
func Failure(reason string, props map[string]any) Event {
	properties := make(map[string]any, len(props)+1)
	for k, v := range props {
		properties[k] = v
	}
	properties["reason"] = reason
	return Event{Action: ActionFailure, Properties: properties}
}

// Sink delivers events somewhere
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// Emitter sends events on background goroutines.
// Emit never blocks; Flush waits for in-flight sends.
type Emitter struct {
	sink    Sink
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewEmitter creates an emitter over sink. A nil sink drops every event.
func NewEmitter(sink Sink, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Emitter{
		sink:    sink,
		logger:  logger.Named("telemetry"),
		timeout: sendTimeout,
	}
}

// Emit queues event for delivery. Delivery errors are logged and dropped.
func (e *Emitter) Emit(event Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := e.sink.Send(ctx, event); err != nil {
			e.logger.Debug("failed to send telemetry event",
				zap.String("action", event.Action),
				zap.Error(err))
		}
	}()
}

// Flush waits until every emitted event was sent or ctx is done.
func (e *Emitter) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NopSink discards events. Used in dev mode.
type NopSink struct{}

// Send implements Sink.
func (NopSink) Send(context.Context, Event) error { return nil }

// Recorder is an in-memory Sink
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Send implements Sink.
func (r *Recorder) Send(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Actions returns the recorded actions in order
func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.events))
	for _, event := range r.events {
		actions = append(actions, event.Action)
	}
	return actions
}

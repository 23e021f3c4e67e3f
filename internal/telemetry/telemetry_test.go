package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/catalog"
)

type fakeTracker struct {
	requests []catalog.TrackRequest
	err      error
}

func (f *fakeTracker) Track(_ context.Context, event catalog.TrackRequest) error {
	f.requests = append(f.requests, event)
	return f.err
}

type blockingSink struct {
	release chan struct{}
}

func (b *blockingSink) Send(ctx context.Context, _ Event) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestEmitterFlushWaitsForSends(t *testing.T) {
	recorder := &Recorder{}
	emitter := NewEmitter(recorder, zap.NewNop())

	emitter.Emit(Event{Action: ActionRun})
	emitter.Emit(Failure(ReasonGetAsset, map[string]any{"asset_name": "orders"}))

	require.NoError(t, emitter.Flush(context.Background()))
	assert.ElementsMatch(t, []string{ActionRun, ActionFailure}, recorder.Actions())
}

func TestEmitterEmitDoesNotBlock(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	emitter := NewEmitter(sink, nil)

	emitted := make(chan struct{})
	go func() {
		emitter.Emit(Event{Action: ActionRun})
		close(emitted)
	}()

	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a slow sink")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, emitter.Flush(ctx), context.DeadlineExceeded)

	close(sink.release)
	require.NoError(t, emitter.Flush(context.Background()))
}

func TestEmitterSwallowsSinkErrors(t *testing.T) {
	tracker := &fakeTracker{err: errors.New("segment down")}
	emitter := NewEmitter(NewCatalogSink(tracker, "gitlab", "gitlab_job_id", "https://gitlab.com/job/1", "tenant.atlan.com"), nil)

	emitter.Emit(Event{Action: ActionRun})
	require.NoError(t, emitter.Flush(context.Background()))
	assert.Len(t, tracker.requests, 1)
}

func TestFailureCopiesProperties(t *testing.T) {
	props := map[string]any{"total_assets": 3}
	event := Failure(ReasonFetchLineage, props)

	assert.Equal(t, ActionFailure, event.Action)
	assert.Equal(t, ReasonFetchLineage, event.Properties["reason"])
	assert.Equal(t, 3, event.Properties["total_assets"])
	assert.NotContains(t, props, "reason")
}

func TestCatalogSinkDecoratesEvent(t *testing.T) {
	tracker := &fakeTracker{}
	sink := NewCatalogSink(tracker, "github", "github_action_id", "https://github.com/acme/dbt/actions/runs/42", "tenant.atlan.com")

	err := sink.Send(context.Background(), Event{
		Action:     ActionDownstreamUnfurl,
		Properties: map[string]any{"asset_guid": "g1", "downstream_count": 4},
	})
	require.NoError(t, err)
	require.Len(t, tracker.requests, 1)

	req := tracker.requests[0]
	assert.Equal(t, "integration", req.Category)
	assert.Equal(t, "github", req.Object)
	assert.Equal(t, "atlan-annonymous-github", req.UserID)
	assert.Equal(t, ActionDownstreamUnfurl, req.Action)
	assert.Equal(t, "https://github.com/acme/dbt/actions/runs/42", req.Properties["github_action_id"])
	assert.Equal(t, "tenant.atlan.com", req.Properties["domain"])
	assert.Equal(t, 4, req.Properties["downstream_count"])
}

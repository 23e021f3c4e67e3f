package telemetry

import (
	"context"

	"github.com/ppiankov/dbtspectre/internal/catalog"
)

// Tracker posts analytics events; *catalog.Client implements it
type Tracker interface {
	Track(ctx context.Context, event catalog.TrackRequest) error
}

// CatalogSink sends events to the catalog's segment endpoint, tagged with
// the integration and the CI run they came from.
type CatalogSink struct {
	tracker  Tracker
	object   string // "github" or "gitlab"
	runKey   string // "github_action_id" or "gitlab_job_id"
	runValue string
	domain   string
}

// NewCatalogSink creates a sink for integration object.
// runKey/runValue link each event to the CI run; domain is the catalog host.
func NewCatalogSink(tracker Tracker, object, runKey, runValue, domain string) *CatalogSink {
	return &CatalogSink{
		tracker:  tracker,
		object:   object,
		runKey:   runKey,
		runValue: runValue,
		domain:   domain,
	}
}

// Send implements Sink.
func (s *CatalogSink) Send(ctx context.Context, event Event) error {
	properties := make(map[string]any, len(event.Properties)+2)
	for k, v := range event.Properties {
		properties[k] = v
	}
	if s.runKey != "" {
		properties[s.runKey] = s.runValue
	}
	properties["domain"] = s.domain

	return s.tracker.Track(ctx, catalog.TrackRequest{
		Category:   "integration",
		Object:     s.object,
		Action:     event.Action,
		UserID:     "atlan-annonymous-" + s.object,
		Properties: properties,
	})
}

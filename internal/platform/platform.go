// Package platform adapts code hosting services to the pipeline.
package platform

import (
	"context"

	"github.com/ppiankov/dbtspectre/internal/models"
)

// State is the lifecycle state of a pull/merge request
type State string

const (
	StateOpen   State = "open"
	StateMerged State = "merged"
	StateClosed State = "closed"
)

// Request describes the pull/merge request a run is about
type Request struct {
	Number       int
	Title        string // used as the resource title on merge
	URL          string // web URL attached as the resource link
	TargetBranch string
	HeadSHA      string
	State        State
}

// Platform is one code hosting service bound to a single request
type Platform interface {
	Request() Request
	ListChanges(ctx context.Context) ([]models.DiffEntry, error)
	ReadFile(ctx context.Context, path, ref string) (string, error)
	ListComments(ctx context.Context) ([]models.Comment, error)
	CreateComment(ctx context.Context, body string) error
	UpdateComment(ctx context.Context, id int64, body string) error
	DeleteComment(ctx context.Context, id int64) error
}

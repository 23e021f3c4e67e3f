// Package comment keeps a single bot comment per pull/merge request.
package comment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

// Marker identifies comments owned by this tool. It must stay byte-identical
// across releases or existing comments stop being found.
const Marker = "<!-- ActionCommentIdentifier: atlan-dbt-action -->"

// Thread is the comment thread of one pull/merge request
type Thread interface {
	ListComments(ctx context.Context) ([]models.Comment, error)
	CreateComment(ctx context.Context, body string) error
	UpdateComment(ctx context.Context, id int64, body string) error
	DeleteComment(ctx context.Context, id int64) error
}

// AuthorMatcher reports whether a comment author is the bot identity
type AuthorMatcher func(author string) bool

// GitHubActionsBot matches comments posted with the workflow token
func GitHubActionsBot() AuthorMatcher {
	return func(author string) bool {
		return author == "github-actions[bot]"
	}
}

// GitLabProjectBot matches the project access token bot of projectID
func GitLabProjectBot(projectID string) AuthorMatcher {
	needle := fmt.Sprintf("project_%s_bot_", projectID)
	return func(author string) bool {
		return strings.Contains(author, needle)
	}
}

// Action is what Ensure did to the thread
type Action string

const (
	ActionNone    Action = "none"
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionDryRun  Action = "dry_run"
)

// Manager creates, updates or deletes the bot comment
type Manager struct {
	thread  Thread
	isBot   AuthorMatcher
	devMode bool
	logger  *zap.Logger
}

// NewManager creates a manager. In dev mode the thread is never called.
func NewManager(thread Thread, isBot AuthorMatcher, devMode bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		thread:  thread,
		isBot:   isBot,
		devMode: devMode,
		logger:  logger.Named("comment"),
	}
}

// Body prefixes content with the marker line
func Body(content string) string {
	return Marker + "\n" + content
}

// Ensure converges the thread on content.
//
//	content, no comment       -> create
//	content, existing comment -> update in place
//	empty, existing comment   -> delete
//	empty, no comment         -> nothing
//
// forceNew always creates a new comment. The returned string is the body
// that was (or in dev mode would have been) posted.
func (m *Manager) Ensure(ctx context.Context, content string, forceNew bool) (string, Action, error) {
	if m.devMode {
		if content == "" {
			return "", ActionNone, nil
		}
		return Body(content), ActionDryRun, nil
	}

	if forceNew {
		if content == "" {
			return "", ActionNone, nil
		}
		body := Body(content)
		if err := m.thread.CreateComment(ctx, body); err != nil {
			return "", ActionNone, fmt.Errorf("failed to create comment: %w", err)
		}
		m.logger.Info("created comment")
		return body, ActionCreated, nil
	}

	existing, err := m.Find(ctx)
	if err != nil {
		return "", ActionNone, err
	}

	switch {
	case content == "" && existing == nil:
		return "", ActionNone, nil
	case content == "":
		if err := m.thread.DeleteComment(ctx, existing.ID); err != nil {
			return "", ActionNone, fmt.Errorf("failed to delete comment %d: %w", existing.ID, err)
		}
		m.logger.Info("deleted comment", zap.Int64("id", existing.ID))
		return "", ActionDeleted, nil
	case existing == nil:
		body := Body(content)
		if err := m.thread.CreateComment(ctx, body); err != nil {
			return "", ActionNone, fmt.Errorf("failed to create comment: %w", err)
		}
		m.logger.Info("created comment")
		return body, ActionCreated, nil
	default:
		body := Body(content)
		if err := m.thread.UpdateComment(ctx, existing.ID, body); err != nil {
			return "", ActionNone, fmt.Errorf("failed to update comment %d: %w", existing.ID, err)
		}
		m.logger.Info("updated comment", zap.Int64("id", existing.ID))
		return body, ActionUpdated, nil
	}
}

// Find returns the first comment, in thread order, authored by the bot and
// carrying the marker.
func (m *Manager) Find(ctx context.Context) (*models.Comment, error) {
	comments, err := m.thread.ListComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	for i := range comments {
		if m.isBot != nil && !m.isBot(comments[i].Author) {
			continue
		}
		if strings.Contains(comments[i].Body, Marker) {
			m.logger.Debug("found existing comment", zap.Int64("id", comments[i].ID))
			return &comments[i], nil
		}
	}
	return nil, nil
}

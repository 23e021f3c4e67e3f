// Package gitlab binds a GitLab merge request from a CI pipeline.
package gitlab

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	gl "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/platform"
)

const perPage = 100

// Env is the GitLab CI runtime environment
type Env struct {
	ServerURL       string `env:"CI_SERVER_URL" env-default:"https://gitlab.com"`
	ProjectID       string `env:"CI_PROJECT_ID"`
	ProjectPath     string `env:"CI_PROJECT_PATH"`
	ProjectName     string `env:"CI_PROJECT_NAME"`
	MergeRequestIID int    `env:"CI_MERGE_REQUEST_IID"`
	CommitSHA       string `env:"CI_COMMIT_SHA"`
	CommitMessage   string `env:"CI_COMMIT_MESSAGE"`
	JobURL          string `env:"CI_JOB_URL"`
	UserLogin       string `env:"GITLAB_USER_LOGIN"`
}

// ReadEnv reads the pipeline environment
func ReadEnv() (Env, error) {
	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Env{}, fmt.Errorf("failed to read GitLab environment: %w", err)
	}

	var errs []error
	if env.ProjectPath == "" {
		errs = append(errs, errors.New("CI_PROJECT_PATH is required"))
	}
	if env.ProjectID == "" {
		errs = append(errs, errors.New("CI_PROJECT_ID is required"))
	}
	if env.MergeRequestIID == 0 && env.CommitSHA == "" {
		errs = append(errs, errors.New("CI_MERGE_REQUEST_IID or CI_COMMIT_SHA is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return Env{}, err
	}
	return env, nil
}

// MergeCommitTitle returns the third line of a merge commit message, which
// GitLab fills with the merge request title.
func MergeCommitTitle(message string) string {
	lines := strings.Split(message, "\n")
	if len(lines) < 3 {
		return ""
	}
	return strings.TrimSpace(lines[2])
}

// Client is a GitLab merge request
type Client struct {
	api     *gl.Client
	project string
	mr      *gl.MergeRequest
	merged  bool
	title   string
	logger  *zap.Logger
}

// New resolves the merge request of the pipeline and binds to it.
// A pipeline whose commit belongs to a merged request binds to that request;
// otherwise CI_MERGE_REQUEST_IID is used, falling back to the first request
// associated with the commit.
func New(ctx context.Context, token string, env Env, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []gl.ClientOptionFunc{gl.WithBaseURL(strings.TrimRight(env.ServerURL, "/") + "/api/v4")}
	if httpClient != nil {
		opts = append(opts, gl.WithHTTPClient(httpClient))
	}
	api, err := gl.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	c := &Client{
		api:     api,
		project: env.ProjectPath,
		logger:  logger.Named("gitlab"),
	}

	iid := env.MergeRequestIID
	if env.CommitSHA != "" {
		related, _, err := api.Commits.ListMergeRequestsByCommit(env.ProjectID, env.CommitSHA, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list merge requests of commit %s: %w", env.CommitSHA, err)
		}
		if len(related) > 0 {
			if related[0].State == "merged" {
				c.merged = true
				iid = related[0].IID
			} else if iid == 0 {
				iid = related[0].IID
			}
		}
	}
	if iid == 0 {
		return nil, errors.New("no merge request found for this pipeline")
	}

	mr, _, err := api.MergeRequests.GetMergeRequest(env.ProjectPath, iid, nil, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch merge request !%d: %w", iid, err)
	}
	c.mr = mr

	c.title = MergeCommitTitle(env.CommitMessage)
	if c.title == "" {
		c.title = mr.Title
	}

	c.logger.Debug("bound merge request",
		zap.Int("iid", mr.IID),
		zap.Bool("merged", c.merged),
		zap.String("target_branch", mr.TargetBranch))
	return c, nil
}

// Request describes the merge request
func (c *Client) Request() platform.Request {
	state := platform.StateOpen
	switch {
	case c.merged || c.mr.State == "merged":
		state = platform.StateMerged
	case c.mr.State == "closed" || c.mr.State == "locked":
		state = platform.StateClosed
	}

	return platform.Request{
		Number:       c.mr.IID,
		Title:        c.title,
		URL:          c.mr.WebURL,
		TargetBranch: c.mr.TargetBranch,
		HeadSHA:      c.headSHA(),
		State:        state,
	}
}

func (c *Client) headSHA() string {
	if c.mr.DiffRefs.HeadSha != "" {
		return c.mr.DiffRefs.HeadSha
	}
	return c.mr.SHA
}

// ListChanges lists the diffs of the merge request
func (c *Client) ListChanges(ctx context.Context) ([]models.DiffEntry, error) {
	var entries []models.DiffEntry
	opts := &gl.ListMergeRequestDiffsOptions{ListOptions: gl.ListOptions{PerPage: perPage, Page: 1}}

	for {
		diffs, resp, err := c.api.MergeRequests.ListMergeRequestDiffs(c.project, c.mr.IID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list diffs of merge request !%d: %w", c.mr.IID, err)
		}
		for _, diff := range diffs {
			entries = append(entries, models.DiffEntry{
				NewPath:   diff.NewPath,
				OldPath:   diff.OldPath,
				IsNewFile: diff.NewFile,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Debug("listed merge request diffs", zap.Int("count", len(entries)))
	return entries, nil
}

// ReadFile returns the contents of path at ref
func (c *Client) ReadFile(ctx context.Context, path, ref string) (string, error) {
	file, _, err := c.api.RepositoryFiles.GetFile(c.project, path, &gl.GetFileOptions{Ref: gl.Ptr(ref)}, gl.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s at %s: %w", path, ref, err)
	}
	if file.Encoding != "" && file.Encoding != "base64" {
		return file.Content, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(file.Content)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return string(decoded), nil
}

// ListComments lists the notes of the merge request, oldest first
func (c *Client) ListComments(ctx context.Context) ([]models.Comment, error) {
	var comments []models.Comment
	opts := &gl.ListMergeRequestNotesOptions{
		ListOptions: gl.ListOptions{PerPage: perPage, Page: 1},
		OrderBy:     gl.Ptr("created_at"),
		Sort:        gl.Ptr("asc"),
	}

	for {
		notes, resp, err := c.api.Notes.ListMergeRequestNotes(c.project, c.mr.IID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list notes: %w", err)
		}
		for _, note := range notes {
			comments = append(comments, models.Comment{
				ID:     int64(note.ID),
				Author: note.Author.Username,
				Body:   note.Body,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, body string) error {
	_, _, err := c.api.Notes.CreateMergeRequestNote(c.project, c.mr.IID,
		&gl.CreateMergeRequestNoteOptions{Body: gl.Ptr(body)}, gl.WithContext(ctx))
	return err
}

func (c *Client) UpdateComment(ctx context.Context, id int64, body string) error {
	noteID, err := noteID(id)
	if err != nil {
		return err
	}
	_, _, err = c.api.Notes.UpdateMergeRequestNote(c.project, c.mr.IID, noteID,
		&gl.UpdateMergeRequestNoteOptions{Body: gl.Ptr(body)}, gl.WithContext(ctx))
	return err
}

func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	noteID, err := noteID(id)
	if err != nil {
		return err
	}
	_, err = c.api.Notes.DeleteMergeRequestNote(c.project, c.mr.IID, noteID, gl.WithContext(ctx))
	return err
}

func noteID(id int64) (int, error) {
	if id <= 0 || strconv.IntSize == 32 && id > 1<<31-1 {
		return 0, fmt.Errorf("invalid note id %d", id)
	}
	return int(id), nil
}

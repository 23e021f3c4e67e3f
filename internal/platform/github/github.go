// Package github binds a GitHub pull request from an Actions run.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/platform"
)

const perPage = 100

// Env is the GitHub Actions runtime environment
type Env struct {
	EventPath  string `env:"GITHUB_EVENT_PATH"`
	Repository string `env:"GITHUB_REPOSITORY"`
	RunID      string `env:"GITHUB_RUN_ID"`
	ServerURL  string `env:"GITHUB_SERVER_URL" env-default:"https://github.com"`
	APIURL     string `env:"GITHUB_API_URL" env-default:"https://api.github.com"`
}

// ReadEnv reads the Actions environment
func ReadEnv() (Env, error) {
	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Env{}, fmt.Errorf("failed to read GitHub environment: %w", err)
	}
	if env.EventPath == "" {
		return Env{}, errors.New("GITHUB_EVENT_PATH is required")
	}
	return env, nil
}

// RunURL links to the workflow run
func (e Env) RunURL(fullName string) string {
	return fmt.Sprintf("%s/%s/actions/runs/%s", strings.TrimRight(e.ServerURL, "/"), fullName, e.RunID)
}

// LoadEvent decodes the pull_request event payload at path
func LoadEvent(path string) (*gh.PullRequestEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}

	var event gh.PullRequestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event payload: %w", err)
	}
	if event.PullRequest == nil {
		return nil, errors.New("event payload has no pull_request; run the action on pull_request events")
	}
	if event.Repo == nil {
		return nil, errors.New("event payload has no repository")
	}
	return &event, nil
}

// Client is a GitHub pull request
type Client struct {
	api    *gh.Client
	event  *gh.PullRequestEvent
	owner  string
	repo   string
	number int
	logger *zap.Logger
}

// New creates a client for the pull request in event.
// apiURL overrides the REST endpoint, e.g. for GitHub Enterprise Server.
func New(token, apiURL string, event *gh.PullRequestEvent, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if event == nil || event.PullRequest == nil || event.Repo == nil {
		return nil, errors.New("pull request event is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := gh.NewClient(httpClient)
	if token != "" {
		api = api.WithAuthToken(token)
	}
	if apiURL != "" {
		base, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		api.BaseURL = base
	}

	return &Client{
		api:    api,
		event:  event,
		owner:  event.Repo.GetOwner().GetLogin(),
		repo:   event.Repo.GetName(),
		number: event.PullRequest.GetNumber(),
		logger: logger.Named("github"),
	}, nil
}

// FullName returns owner/name of the repository
func (c *Client) FullName() string {
	if name := c.event.Repo.GetFullName(); name != "" {
		return name
	}
	return c.owner + "/" + c.repo
}

// Request describes the pull request
func (c *Client) Request() platform.Request {
	pr := c.event.PullRequest

	state := platform.StateClosed
	switch {
	case pr.GetState() == "open":
		state = platform.StateOpen
	case pr.GetState() == "closed" && pr.GetMerged():
		state = platform.StateMerged
	}

	return platform.Request{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		URL:          pr.GetHTMLURL(),
		TargetBranch: pr.GetBase().GetRef(),
		HeadSHA:      pr.GetHead().GetSHA(),
		State:        state,
	}
}

// ListChanges lists every file of the pull request
func (c *Client) ListChanges(ctx context.Context) ([]models.DiffEntry, error) {
	var entries []models.DiffEntry
	opts := &gh.ListOptions{PerPage: perPage}

	for {
		files, resp, err := c.api.PullRequests.ListFiles(ctx, c.owner, c.repo, c.number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list files of pull request #%d: %w", c.number, err)
		}
		for _, file := range files {
			entries = append(entries, models.DiffEntry{
				NewPath:   file.GetFilename(),
				OldPath:   file.GetPreviousFilename(),
				IsNewFile: file.GetStatus() == "added",
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Debug("listed pull request files", zap.Int("count", len(entries)))
	return entries, nil
}

// ReadFile returns the contents of path at ref
func (c *Client) ReadFile(ctx context.Context, path, ref string) (string, error) {
	file, _, _, err := c.api.Repositories.GetContents(ctx, c.owner, c.repo, path, &gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s at %s: %w", path, ref, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return content, nil
}

// ListComments lists the issue comments of the pull request, oldest first
func (c *Client) ListComments(ctx context.Context) ([]models.Comment, error) {
	var comments []models.Comment
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}

	for {
		page, resp, err := c.api.Issues.ListComments(ctx, c.owner, c.repo, c.number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}
		for _, comment := range page {
			comments = append(comments, models.Comment{
				ID:     comment.GetID(),
				Author: comment.GetUser().GetLogin(),
				Body:   comment.GetBody(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, body string) error {
	_, _, err := c.api.Issues.CreateComment(ctx, c.owner, c.repo, c.number, &gh.IssueComment{Body: gh.Ptr(body)})
	return err
}

func (c *Client) UpdateComment(ctx context.Context, id int64, body string) error {
	_, _, err := c.api.Issues.EditComment(ctx, c.owner, c.repo, id, &gh.IssueComment{Body: gh.Ptr(body)})
	return err
}

func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	_, err := c.api.Issues.DeleteComment(ctx, c.owner, c.repo, id)
	return err
}

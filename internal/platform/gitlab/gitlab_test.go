package gitlab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dbtspectre/internal/platform"
)

const (
	projectPrefix = "/api/v4/projects/acme/analytics"
	mergeRequest  = `{"iid":3,"title":"Rework orders","state":"opened","web_url":"https://gitlab.example.com/acme/analytics/-/merge_requests/3","target_branch":"main","sha":"tip","diff_refs":{"base_sha":"base","head_sha":"head","start_sha":"start"}}`
)

type fakeGitLab struct {
	t           *testing.T
	commitMRs   string
	createdBody string
	updatedBody string
	deleted     bool
}

func (f *fakeGitLab) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// decoded, so escaped slashes in ids and file paths compare as plain text
	path := r.URL.Path

	switch {
	case path == "/api/v4/projects/42/repository/commits/abc/merge_requests":
		fmt.Fprint(w, f.commitMRs)
	case path == projectPrefix+"/merge_requests/3" || path == projectPrefix+"/merge_requests/8":
		fmt.Fprint(w, mergeRequest)
	case path == projectPrefix+"/merge_requests/3/diffs":
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"old_path":"models/new.sql","new_path":"models/new.sql","new_file":true}]`)
			return
		}
		w.Header().Set("X-Next-Page", "2")
		fmt.Fprint(w, `[{"old_path":"models/orders.sql","new_path":"models/orders.sql"},{"old_path":"models/a.sql","new_path":"models/b/a.sql","renamed_file":true}]`)
	case path == projectPrefix+"/repository/files/models/orders.sql":
		assert.Equal(f.t, "head", r.URL.Query().Get("ref"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"file_path": "models/orders.sql",
			"encoding":  "base64",
			"content":   base64.StdEncoding.EncodeToString([]byte("select 1")),
		})
	case path == projectPrefix+"/merge_requests/3/notes" && r.Method == http.MethodGet:
		assert.Equal(f.t, "asc", r.URL.Query().Get("sort"))
		fmt.Fprint(w, `[{"id":9,"body":"hi","author":{"username":"project_42_bot_abc"}}]`)
	case path == projectPrefix+"/merge_requests/3/notes" && r.Method == http.MethodPost:
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.createdBody = payload["body"]
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":10}`)
	case path == projectPrefix+"/merge_requests/3/notes/9" && r.Method == http.MethodPut:
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.updatedBody = payload["body"]
		fmt.Fprint(w, `{"id":9}`)
	case path == projectPrefix+"/merge_requests/3/notes/9" && r.Method == http.MethodDelete:
		f.deleted = true
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Not Found"}`)
	}
}

func newTestClient(t *testing.T, fake *fakeGitLab, env Env) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	env.ServerURL = server.URL
	env.ProjectID = "42"
	env.ProjectPath = "acme/analytics"

	client, err := New(context.Background(), "token", env, server.Client(), nil)
	require.NoError(t, err)
	return client
}

func TestNewOpenMergeRequest(t *testing.T) {
	fake := &fakeGitLab{t: t, commitMRs: `[{"iid":3,"state":"opened"}]`}
	client := newTestClient(t, fake, Env{MergeRequestIID: 3, CommitSHA: "abc"})

	req := client.Request()
	assert.Equal(t, platform.StateOpen, req.State)
	assert.Equal(t, 3, req.Number)
	assert.Equal(t, "main", req.TargetBranch)
	assert.Equal(t, "head", req.HeadSHA)
	assert.Equal(t, "Rework orders", req.Title)
}

func TestNewMergedCommit(t *testing.T) {
	fake := &fakeGitLab{t: t, commitMRs: `[{"iid":3,"state":"merged"}]`}
	client := newTestClient(t, fake, Env{
		CommitSHA:     "abc",
		CommitMessage: "Merge branch 'feature' into 'main'\n\nRework orders model\n\nSee merge request acme/analytics!3",
	})

	req := client.Request()
	assert.Equal(t, platform.StateMerged, req.State)
	assert.Equal(t, "Rework orders model", req.Title)
	assert.Equal(t, "https://gitlab.example.com/acme/analytics/-/merge_requests/3", req.URL)
}

func TestNewWithoutMergeRequest(t *testing.T) {
	fake := &fakeGitLab{t: t, commitMRs: `[]`}
	server := httptest.NewServer(fake)
	defer server.Close()

	_, err := New(context.Background(), "token", Env{
		ServerURL:   server.URL,
		ProjectID:   "42",
		ProjectPath: "acme/analytics",
		CommitSHA:   "abc",
	}, server.Client(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no merge request")
}

func TestListChangesAndReadFile(t *testing.T) {
	fake := &fakeGitLab{t: t, commitMRs: `[]`}
	client := newTestClient(t, fake, Env{MergeRequestIID: 3, CommitSHA: "abc"})
	ctx := context.Background()

	entries, err := client.ListChanges(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "models/a.sql", entries[1].OldPath)
	assert.Equal(t, "models/b/a.sql", entries[1].NewPath)
	assert.True(t, entries[2].IsNewFile)

	content, err := client.ReadFile(ctx, "models/orders.sql", "head")
	require.NoError(t, err)
	assert.Equal(t, "select 1", content)

	_, err = client.ReadFile(ctx, "models/missing.sql", "head")
	assert.Error(t, err)
}

func TestNotes(t *testing.T) {
	fake := &fakeGitLab{t: t, commitMRs: `[]`}
	client := newTestClient(t, fake, Env{MergeRequestIID: 3})
	ctx := context.Background()

	comments, err := client.ListComments(ctx)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(9), comments[0].ID)
	assert.Equal(t, "project_42_bot_abc", comments[0].Author)

	require.NoError(t, client.CreateComment(ctx, "created"))
	require.NoError(t, client.UpdateComment(ctx, 9, "updated"))
	require.NoError(t, client.DeleteComment(ctx, 9))
	assert.Equal(t, "created", fake.createdBody)
	assert.Equal(t, "updated", fake.updatedBody)
	assert.True(t, fake.deleted)

	assert.Error(t, client.DeleteComment(ctx, 0))
}

func TestMergeCommitTitle(t *testing.T) {
	assert.Equal(t, "Title", MergeCommitTitle("Merge branch 'a' into 'main'\n\nTitle\n\nbody"))
	assert.Equal(t, "", MergeCommitTitle("single line"))
}

func TestReadEnvRequiresProject(t *testing.T) {
	for _, key := range []string{"CI_PROJECT_PATH", "CI_PROJECT_ID", "CI_MERGE_REQUEST_IID", "CI_COMMIT_SHA"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	_, err := ReadEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CI_PROJECT_PATH is required")
}

package comment

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/dbtspectre/internal/models"
)

// MemoryThread is an in-process Thread. Comments it creates are authored
// by Author.
type MemoryThread struct {
	Author string

	mu       sync.Mutex
	nextID   int64
	comments []models.Comment
}

// NewMemoryThread creates a thread seeded with existing comments
func NewMemoryThread(author string, existing ...models.Comment) *MemoryThread {
	t := &MemoryThread{Author: author}
	for _, c := range existing {
		t.comments = append(t.comments, c)
		t.nextID = max(t.nextID, c.ID)
	}
	return t
}

func (t *MemoryThread) ListComments(_ context.Context) ([]models.Comment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Comment(nil), t.comments...), nil
}

func (t *MemoryThread) CreateComment(_ context.Context, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.comments = append(t.comments, models.Comment{ID: t.nextID, Author: t.Author, Body: body})
	return nil
}

func (t *MemoryThread) UpdateComment(_ context.Context, id int64, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.comments {
		if t.comments[i].ID == id {
			t.comments[i].Body = body
			return nil
		}
	}
	return fmt.Errorf("comment %d not found", id)
}

func (t *MemoryThread) DeleteComment(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.comments {
		if t.comments[i].ID == id {
			t.comments = append(t.comments[:i], t.comments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("comment %d not found", id)
}

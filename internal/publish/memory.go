package publish

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Memory is a CommentStore held in process memory.
type Memory struct {
	mu       sync.Mutex
	next     int
	comments map[string][]Comment
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{comments: make(map[string][]Comment)}
}

func threadKey(repo string, pr int) string {
	return repo + "#" + strconv.Itoa(pr)
}

func (m *Memory) List(_ context.Context, repo string, pr int) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Comment(nil), m.comments[threadKey(repo, pr)]...), nil
}

func (m *Memory) Create(_ context.Context, repo string, pr int, body string) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	c := Comment{ID: strconv.Itoa(m.next), Body: body}
	k := threadKey(repo, pr)
	m.comments[k] = append(m.comments[k], c)
	return c, nil
}

func (m *Memory) Update(_ context.Context, repo string, pr int, id, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread := m.comments[threadKey(repo, pr)]
	for i := range thread {
		if thread[i].ID == id {
			thread[i].Body = body
			return nil
		}
	}
	return fmt.Errorf("comment %s not found on %s", id, threadKey(repo, pr))
}

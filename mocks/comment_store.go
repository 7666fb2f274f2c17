// Package mocks provides in-memory stand-ins for service collaborators.
package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
)

// MockCommentStore is an in-memory CommentStore.
type MockCommentStore struct {
	mu          sync.Mutex
	Comments    map[uint]*models.Comment
	nextID      uint
	CreateError error
	CreateCalls int
	WriteCalls  int
}

func NewMockCommentStore() *MockCommentStore {
	return &MockCommentStore{Comments: make(map[uint]*models.Comment)}
}

func (m *MockCommentStore) Create(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.Comments[c.ID] = &cp
	return nil
}

func (m *MockCommentStore) Get(ctx context.Context, id uint) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCommentStore) UpdateStatus(ctx context.Context, id uint, status models.CommentStatus) (int64, error) {
	return m.BatchUpdateStatus(ctx, []uint{id}, status)
}

func (m *MockCommentStore) BatchUpdateStatus(ctx context.Context, ids []uint, status models.CommentStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	var n int64
	for _, id := range ids {
		if c, ok := m.Comments[id]; ok {
			c.Status = status
			n++
		}
	}
	return n, nil
}

func (m *MockCommentStore) Delete(ctx context.Context, id uint) (int64, error) {
	return m.BatchDelete(ctx, []uint{id})
}

func (m *MockCommentStore) BatchDelete(ctx context.Context, ids []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	var n int64
	for _, id := range ids {
		if _, ok := m.Comments[id]; ok {
			delete(m.Comments, id)
			n++
		}
	}
	return n, nil
}

func (m *MockCommentStore) sorted() []*models.Comment {
	out := make([]*models.Comment, 0, len(m.Comments))
	for _, c := range m.Comments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MockCommentStore) ListApproved(ctx context.Context, postID uint) ([]models.PublicComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PublicComment{}
	for _, c := range m.sorted() {
		if c.PostID == postID && c.Status == models.CommentApproved {
			pc := c.Public()
			pc.Status = 0
			out = append(out, pc)
		}
	}
	return out, nil
}

func (m *MockCommentStore) ListForModeration(ctx context.Context, f repository.CommentFilter) ([]models.ModerationComment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []models.ModerationComment{}
	for _, c := range m.sorted() {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		matched = append(matched, models.ModerationComment{Comment: *c})
	}
	total := int64(len(matched))
	start := f.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// Len returns the number of stored comments.
func (m *MockCommentStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Comments)
}

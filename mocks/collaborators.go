package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/ratelimit"
)

// MockPostLookup reports the ids in Published as commentable.
type MockPostLookup struct {
	Published map[uint]bool
	Err       error
	Calls     int
}

func NewMockPostLookup(ids ...uint) *MockPostLookup {
	m := &MockPostLookup{Published: make(map[uint]bool)}
	for _, id := range ids {
		m.Published[id] = true
	}
	return m
}

func (m *MockPostLookup) PublishedPostExists(ctx context.Context, id uint) (bool, error) {
	m.Calls++
	if m.Err != nil {
		return false, m.Err
	}
	return m.Published[id], nil
}

// MockLimiter returns a fixed result or error and records the keys it saw.
type MockLimiter struct {
	Result ratelimit.Result
	Err    error
	Keys   []string
}

func (m *MockLimiter) Allow(ctx context.Context, identifier string, window time.Duration, maxRequests int) (ratelimit.Result, error) {
	m.Keys = append(m.Keys, identifier)
	return m.Result, m.Err
}

// MockNotifier records the comments it was told about.
type MockNotifier struct {
	mu       sync.Mutex
	Comments []models.Comment
}

func (m *MockNotifier) CommentSubmitted(c models.Comment) {
	m.mu.Lock()
	m.Comments = append(m.Comments, c)
	m.mu.Unlock()
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Comments)
}

// MockMailer records sent messages.
type MockMailer struct {
	mu   sync.Mutex
	Sent []string
	Err  error
}

func (m *MockMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, to+"|"+subject+"|"+body)
	return m.Err
}

func (m *MockMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/serroba/feedback-demo-go/internal/feedback"
)

// MemoryStore is an in-memory implementation of feedback.Repository.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   feedback.ID
	entries  map[feedback.ID]feedback.Feedback
	analyses map[feedback.ID]feedback.Summary
}

// NewMemoryStore creates a new in-memory feedback store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[feedback.ID]feedback.Feedback),
		analyses: make(map[feedback.ID]feedback.Summary),
	}
}

func (m *MemoryStore) Save(_ context.Context, f *feedback.Feedback) (feedback.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	f.ID = m.nextID
	m.entries[f.ID] = *f

	return f.ID, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id feedback.ID) (*feedback.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.entries[id]
	if !ok {
		return nil, feedback.ErrNotFound
	}

	return &f, nil
}

func (m *MemoryStore) List(_ context.Context) ([]feedback.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]feedback.Feedback, 0, len(m.entries))
	for _, f := range m.entries {
		list = append(list, f)
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.After(list[j].Timestamp)
		}

		return list[i].ID > list[j].ID
	})

	return list, nil
}

func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.entries)), nil
}

func (m *MemoryStore) Statistics(_ context.Context) (*feedback.Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &feedback.Statistics{
		TotalFeedback:     int64(len(m.entries)),
		CategoryBreakdown: make(map[string]int),
	}

	var sum int

	for _, f := range m.entries {
		sum += f.Rating
		stats.CategoryBreakdown[f.Category]++
	}

	if stats.TotalFeedback > 0 {
		stats.AverageRating = feedback.RoundRating(float64(sum) / float64(stats.TotalFeedback))
	}

	return stats, nil
}

func (m *MemoryStore) SaveAnalysis(_ context.Context, id feedback.ID, summary *feedback.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return feedback.ErrNotFound
	}

	m.analyses[id] = *summary

	return nil
}

func (m *MemoryStore) GetAnalysis(_ context.Context, id feedback.ID) (*feedback.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary, ok := m.analyses[id]
	if !ok {
		return nil, feedback.ErrNotFound
	}

	return &summary, nil
}

var _ feedback.Repository = (*MemoryStore)(nil)

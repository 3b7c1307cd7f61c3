package store

import (
	"context"
	"sync"
	"time"
)

// MemoryGateway keeps records in process memory.
type MemoryGateway struct {
	mu     sync.RWMutex
	byID   map[string]Record
	slugID map[string]string
}

var _ Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway creates an empty in-memory gateway
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		byID:   make(map[string]Record),
		slugID: make(map[string]string),
	}
}

func (m *MemoryGateway) SaveResume(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.slugID[rec.Slug]; taken {
		return Record{}, errSlugCollision(rec.Slug, nil)
	}
	if _, exists := m.byID[rec.ID]; exists {
		return Record{}, errPersistence("Record id already exists", nil)
	}

	rec.ParsedData = rec.ParsedData.Clone()
	m.byID[rec.ID] = rec
	m.slugID[rec.Slug] = rec.ID
	return rec, nil
}

func (m *MemoryGateway) GetResumeBySlug(ctx context.Context, slug string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugID[slug]
	if !ok {
		return Record{}, errNotFound("Resume", slug)
	}
	rec := m.byID[id]
	rec.ParsedData = rec.ParsedData.Clone()
	return rec, nil
}

func (m *MemoryGateway) UpdateResume(ctx context.Context, id string, upd Update) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return Record{}, errNotFound("Resume", id)
	}
	upd.apply(&rec)
	rec.UpdatedAt = time.Now().UTC()
	m.byID[id] = rec

	out := rec
	out.ParsedData = rec.ParsedData.Clone()
	return out, nil
}

func (m *MemoryGateway) DeleteResume(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return errNotFound("Resume", id)
	}
	delete(m.byID, id)
	delete(m.slugID, rec.Slug)
	return nil
}

func (m *MemoryGateway) IncrementViewCount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return errNotFound("Resume", id)
	}
	rec.ViewCount++
	m.byID[id] = rec
	return nil
}

// Len returns the number of stored records
func (m *MemoryGateway) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *MemoryGateway) Close() error { return nil }

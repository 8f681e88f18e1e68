package journal

import (
	"context"
	"sort"
	"sync"

	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// MemoryStore keeps action records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.ActionRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.ActionRecord)}
}

func (m *MemoryStore) Connect() error { return nil }
func (m *MemoryStore) Close() error   { return nil }
func (m *MemoryStore) Ping() error    { return nil }
func (m *MemoryStore) Migrate() error { return nil }

// SaveAction stores a copy of record
func (m *MemoryStore) SaveAction(ctx context.Context, record *models.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[record.ID]; exists {
		return utils.NewAppError(utils.ErrCodeDatabase, "Action already exists", record.ID)
	}
	m.records[record.ID] = cloneRecord(record)
	return nil
}

// UpdateAction replaces a stored record
func (m *MemoryStore) UpdateAction(ctx context.Context, record *models.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[record.ID]; !exists {
		return utils.NewAppError(utils.ErrCodeNotFound, "Action not found", record.ID)
	}
	m.records[record.ID] = cloneRecord(record)
	return nil
}

// GetAction returns a copy of a stored record
func (m *MemoryStore) GetAction(ctx context.Context, id string) (*models.ActionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Action not found", id)
	}
	return cloneRecord(record), nil
}

// ListActions returns matching records, newest first
func (m *MemoryStore) ListActions(ctx context.Context, filter models.ActionFilter) ([]*models.ActionRecord, error) {
	m.mu.RLock()
	var out []*models.ActionRecord
	for _, r := range m.records {
		if filter.DealIDOnChain != nil && r.DealIDOnChain != *filter.DealIDOnChain {
			continue
		}
		if filter.Action != nil && r.Action != *filter.Action {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, cloneRecord(r))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRecord(r *models.ActionRecord) *models.ActionRecord {
	c := *r
	c.TxHashes = append([]string(nil), r.TxHashes...)
	if r.Error != nil {
		msg := *r.Error
		c.Error = &msg
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

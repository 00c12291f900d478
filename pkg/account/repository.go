package account

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when no record exists for a login ID.
var ErrRecordNotFound = errors.New("security record not found")

// Repository persists security records.
//
// Save writes the whole record in one step; readers never observe a partially
// updated record.
type Repository interface {
	GetByLoginID(ctx context.Context, loginID uuid.UUID) (Record, error)
	Save(ctx context.Context, record Record) error
}

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewInMemoryRepository creates a new in-memory record repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[uuid.UUID]Record),
	}
}

func (r *InMemoryRepository) GetByLoginID(ctx context.Context, loginID uuid.UUID) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[loginID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return record, nil
}

func (r *InMemoryRepository) Save(ctx context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.UpdatedAt = time.Now().UTC()
	r.records[record.LoginID] = record
	return nil
}

// Reload returns the stored copy of saved, so fields the repository assigns
// on Save (UpdatedAt) are current. If the read fails, saved is returned as is.
func Reload(ctx context.Context, repo Repository, saved Record) Record {
	stored, err := repo.GetByLoginID(ctx, saved.LoginID)
	if err != nil {
		slog.Warn("Failed to reload security record after save", "loginID", saved.LoginID, "error", err)
		return saved
	}
	return stored
}

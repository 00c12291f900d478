package account

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const recordsFileName = "security_records.json"

// FileRepository implements Repository using file-based storage
type FileRepository struct {
	dataDir string
	records map[uuid.UUID]Record
	mutex   sync.RWMutex
}

// NewFileRepository creates a new file-based record repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir: dataDir,
		records: make(map[uuid.UUID]Record),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// GetByLoginID retrieves the record for a login
func (r *FileRepository) GetByLoginID(ctx context.Context, loginID uuid.UUID) (Record, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, ok := r.records[loginID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return record, nil
}

// Save stores the record and flushes all records to disk
func (r *FileRepository) Save(ctx context.Context, record Record) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, existed := r.records[record.LoginID]

	record.UpdatedAt = time.Now().UTC()
	r.records[record.LoginID] = record

	if err := r.save(); err != nil {
		// Rollback
		if existed {
			r.records[record.LoginID] = previous
		} else {
			delete(r.records, record.LoginID)
		}
		return fmt.Errorf("failed to save: %w", err)
	}

	return nil
}

// load reads records from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, recordsFileName)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.records = make(map[uuid.UUID]Record, len(records))
	for _, record := range records {
		r.records[record.LoginID] = record
	}

	return nil
}

// save writes records to file atomically
func (r *FileRepository) save() error {
	records := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Secrets live in this file, keep it owner-only
	tempFile := filepath.Join(r.dataDir, recordsFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(r.dataDir, recordsFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

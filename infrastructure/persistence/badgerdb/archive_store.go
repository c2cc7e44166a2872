// Package badgerdb persists document exports in an embedded Badger store.
// It is the default archive backend for single-node deployments.
package badgerdb

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"molstack/application/ports"
	"molstack/domain/core/aggregates"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

const keyPrefix = "export:"

// ArchiveStore implements ports.ArchiveStore over Badger
type ArchiveStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// Options configure the store
type Options struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM; used by tests.
	InMemory bool
}

// NewArchiveStore opens the store
func NewArchiveStore(opts Options, logger *zap.Logger) (*ArchiveStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(nil)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", opts.Path, err)
	}
	return &ArchiveStore{db: db, logger: logger}, nil
}

var _ ports.ArchiveStore = (*ArchiveStore)(nil)

// Put persists a document export under its document ID
func (s *ArchiveStore) Put(ctx context.Context, export *aggregates.Export) error {
	if export == nil {
		return pkgerrors.NewValidationError("export payload is empty")
	}
	data, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	key := storeKey(export.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Get retrieves the most recent export for a document
func (s *ArchiveStore) Get(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Export, error) {
	var export aggregates.Export
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &export)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("export for document %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	return &export, nil
}

// Delete removes a document's export
func (s *ArchiveStore) Delete(ctx context.Context, id valueobjects.DocumentID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(id))
	})
}

// Close releases the store's resources
func (s *ArchiveStore) Close() error {
	return s.db.Close()
}

func storeKey(id valueobjects.DocumentID) []byte {
	return []byte(keyPrefix + id.String())
}

package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository using BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
	ttl     time.Duration
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// RepositoryOption configures an EmbeddingRepository.
type RepositoryOption func(*EmbeddingRepository)

// WithEntryTTL expires cached vectors after d. Zero keeps them forever.
func WithEntryTTL(d time.Duration) RepositoryOption {
	return func(r *EmbeddingRepository) {
		r.ttl = d
	}
}

// newEmbeddingRepository is the internal constructor returning the concrete type.
func newEmbeddingRepository(backend *Backend, opts ...RepositoryOption) *EmbeddingRepository {
	r := &EmbeddingRepository{backend: backend}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewEmbeddingRepository creates an embedding repository on backend.
// The backend stays owned by the caller.
func NewEmbeddingRepository(backend *Backend, opts ...RepositoryOption) (storage.EmbeddingRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return newEmbeddingRepository(backend, opts...), nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// GetEmbeddings retrieves cached vectors. Missing IDs are skipped.
func (r *EmbeddingRepository) GetEmbeddings(ctx context.Context, ids ...core.ID) (map[core.ID][]float32, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	result := make(map[core.ID][]float32, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			vector, err := readVector(tx, makeEmbeddingKey(id))
			if err != nil {
				return err
			}
			if vector != nil {
				result[id] = vector
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PutEmbeddings stores vectors in a single write batch.
func (r *EmbeddingRepository) PutEmbeddings(ctx context.Context, entries map[core.ID][]float32) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(entries) == 0 {
		return nil
	}

	wb := r.backend.NewWriteBatch()
	defer wb.Cancel()
	for id, vector := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := badger.NewEntry(makeEmbeddingKey(id), storage.MarshalVector(vector))
		if r.ttl > 0 {
			e = e.WithTTL(r.ttl)
		}
		if err := wb.SetEntry(e); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// DeleteEmbeddings removes cached vectors. Missing IDs are ignored.
func (r *EmbeddingRepository) DeleteEmbeddings(ctx context.Context, ids ...core.ID) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeEmbeddingKey(id)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// CountEmbeddings counts stored vectors with a key-only iteration.
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(embeddingPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if _, ok := parseEmbeddingKey(iter.Item().Key()); ok {
				count++
			}
		}
		return nil
	}, false)
	return count, err
}

func readVector(tx *badger.Txn, key []byte) ([]float32, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var vector []float32
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		vector, unmarshalErr = storage.UnmarshalVector(val)
		return unmarshalErr
	})
	return vector, err
}

// Package filestore backs DATABASE_URL=file://<path>: an in-memory store
// that loads its state from a JSON snapshot on boot and periodically
// persists back to it, grounded on the teacher's ticker-driven background
// maintenance goroutines (infrastructure/di/cache.go's cleanupExpired).
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"amp/internal/store"
	"amp/internal/store/memstore"
)

const defaultFlushInterval = 10 * time.Second

// Store wraps a memstore.Store with file-backed durability.
type Store struct {
	*memstore.Store

	path     string
	logger   *zap.Logger
	flushMu  sync.Mutex
	stopOnce sync.Once
	stopCh   chan struct{}
}

// Open loads path if it exists and starts a background flush loop. Callers
// must call Close to stop the loop and flush final state.
func Open(logger *zap.Logger, path string) (*Store, error) {
	mem := memstore.New()

	if data, err := os.ReadFile(path); err == nil {
		var snap memstore.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		mem.Restore(&snap)
		logger.Info("filestore loaded snapshot", zap.String("path", path),
			zap.Int("objects", len(snap.Objects)), zap.Int("relationships", len(snap.Relationships)))
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	s := &Store{
		Store:  mem,
		path:   path,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	go s.flushLoop()
	return s, nil
}

func (s *Store) flushLoop() {
	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.Warn("filestore periodic flush failed", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Flush writes the current contents to disk, atomically via a temp-file rename.
func (s *Store) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	snap := s.Store.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".filestore-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Close stops the background flush loop and writes a final snapshot.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return s.Flush()
}

// NewObjectStore, NewRelationshipStore and NewLeaseStore project the wrapped
// memstore.Store onto the three backing-store ports.
func NewObjectStore(s *Store) store.ObjectStore             { return memstore.NewObjectStore(s.Store) }
func NewRelationshipStore(s *Store) store.RelationshipStore { return memstore.NewRelationshipStore(s.Store) }
func NewLeaseStore(s *Store) store.LeaseStore               { return memstore.NewLeaseStore(s.Store) }

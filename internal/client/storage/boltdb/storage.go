package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/chatsync/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketActions     = []byte("actions")        // seq -> OfflineAction
	bucketActionIndex = []byte("actions_by_id")  // action id -> seq
	bucketFailed      = []byte("failed_actions") // action id -> OfflineAction
	bucketMessages    = []byte("messages")
	bucketIDMap       = []byte("id_map")
	bucketDocuments   = []byte("documents")
	bucketSession     = []byte("session")
	bucketMetadata    = []byte("metadata")
	bucketLastSeen    = []byte("last_seen")
)

var allBuckets = [][]byte{
	bucketActions,
	bucketActionIndex,
	bucketFailed,
	bucketMessages,
	bucketIDMap,
	bucketDocuments,
	bucketSession,
	bucketMetadata,
	bucketLastSeen,
}

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

// Compile-time interface checks
var (
	_ storage.ActionQueue     = (*Storage)(nil)
	_ storage.MessageStorage  = (*Storage)(nil)
	_ storage.IDMapStorage    = (*Storage)(nil)
	_ storage.DocumentStorage = (*Storage)(nil)
	_ storage.SessionStorage  = (*Storage)(nil)
	_ storage.MetadataStorage = (*Storage)(nil)
)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	// Инициализируем buckets
	if err := storage.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// update выполняет транзакцию записи, проверяя что хранилище открыто
func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(fn)
}

// view выполняет транзакцию чтения, проверяя что хранилище открыто
func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.View(fn)
}

func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

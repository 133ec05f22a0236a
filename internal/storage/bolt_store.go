package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/wikiquiz/internal/domain"
)

const (
	quizBucket = "quizzes"
	urlBucket  = "quiz_urls"
	idBytes    = 8
)

// boltStore implements a Store backed by BoltDB. Records live in quizBucket under
// big-endian ids so cursor order is id order; urlBucket maps url to id.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{quizBucket, urlBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) GetByURL(_ context.Context, url string) (domain.QuizRecord, error) {
	var rec domain.QuizRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(urlBucket)).Get([]byte(url))
		if id == nil {
			return ErrNotFound
		}
		return readRecord(tx, id, &rec)
	})
	return rec, err
}

func (b *boltStore) GetByID(_ context.Context, id int64) (domain.QuizRecord, error) {
	var rec domain.QuizRecord
	if id <= 0 {
		return rec, ErrNotFound
	}
	err := b.db.View(func(tx *bolt.Tx) error {
		return readRecord(tx, encodeID(uint64(id)), &rec)
	})
	return rec, err
}

func (b *boltStore) List(_ context.Context) ([]domain.QuizSummary, error) {
	items := []domain.QuizSummary{}
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(quizBucket)).ForEach(func(_, v []byte) error {
			var rec domain.QuizRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode quiz record: %w", err)
			}
			items = append(items, rec.ListItem())
			return nil
		})
	})
	return items, err
}

// Create checks the url index and inserts in one write transaction, so concurrent
// creates for the same url yield exactly one record.
func (b *boltStore) Create(_ context.Context, rec domain.QuizRecord) (domain.QuizRecord, error) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		urls := tx.Bucket([]byte(urlBucket))
		if urls.Get([]byte(rec.URL)) != nil {
			return ErrDuplicate
		}

		quizzes := tx.Bucket([]byte(quizBucket))
		seq, err := quizzes.NextSequence()
		if err != nil {
			return err
		}
		rec.ID = int64(seq)
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode quiz record: %w", err)
		}
		key := encodeID(seq)
		if err := quizzes.Put(key, payload); err != nil {
			return err
		}
		return urls.Put([]byte(rec.URL), key)
	})
	if err != nil {
		return domain.QuizRecord{}, err
	}
	return rec, nil
}

func readRecord(tx *bolt.Tx, key []byte, rec *domain.QuizRecord) error {
	value := tx.Bucket([]byte(quizBucket)).Get(key)
	if value == nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(value, rec); err != nil {
		return fmt.Errorf("decode quiz record: %w", err)
	}
	return nil
}

func encodeID(id uint64) []byte {
	buf := make([]byte, idBytes)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

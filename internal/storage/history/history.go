package history

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	MessagesBucket = "messages"
)

// Store хранит принятые строки в bbolt в порядке поступления
type Store struct {
	db         *bbolt.DB
	serializer Serializer
	now        func() time.Time
}

// Config содержит конфигурацию для Store
type Config struct {
	Path       string
	FileMode   os.FileMode
	Options    *bbolt.Options
	Serializer Serializer
}

// Open открывает (или создает) базу истории
func Open(cfg Config) (*Store, error) {
	if cfg.Serializer == nil {
		cfg.Serializer = &GobSerializer{}
	}

	if cfg.FileMode == 0 {
		cfg.FileMode = 0600
	}

	if cfg.Options == nil {
		cfg.Options = &bbolt.Options{Timeout: time.Second}
	}

	db, err := bbolt.Open(cfg.Path, cfg.FileMode, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", cfg.Path, err)
	}

	// Создаем bucket при инициализации
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(MessagesBucket))
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Store{
		db:         db,
		serializer: cfg.Serializer,
		now:        time.Now,
	}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return ErrNilDB
	}
	return s.db.Close()
}

// Append сохраняет строку и возвращает созданную запись
func (s *Store) Append(ctx context.Context, text string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:         uuid.New(),
		Text:       text,
		ReceivedAt: s.now(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MessagesBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		data, err := s.serializer.Serialize(rec)
		if err != nil {
			return err
		}
		return bucket.Put(sequenceKey(seq), data)
	})
	if err != nil {
		return Record{}, fmt.Errorf("append history: %w", err)
	}
	return rec, nil
}

// List возвращает последние limit записей, от старых к новым. limit == 0 - все записи.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MessagesBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}

		// идем с конца, чтобы не читать всю историю ради последних строк
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) == limit {
				break
			}
			var rec Record
			if err := s.serializer.Deserialize(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Clear удаляет всю историю
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(MessagesBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(MessagesBucket))
		return err
	})
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

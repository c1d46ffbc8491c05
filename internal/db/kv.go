package db

import (
	"database/sql"
	"time"

	"github.com/hpungsan/vodnote/internal/errors"
)

// KV stores whole values by key in the records table.
type KV struct {
	db  *sql.DB
	now func() time.Time
}

// NewKV wraps an initialized database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db, now: time.Now}
}

// Get returns the value stored under key, or NOT_FOUND.
func (k *KV) Get(key string) ([]byte, error) {
	var value []byte
	err := k.db.QueryRow(`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(key)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return value, nil
}

// Put replaces the value stored under key.
func (k *KV) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := k.db.Exec(`
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, k.now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpdatedAt returns when key was last written, as Unix seconds.
func (k *KV) UpdatedAt(key string) (int64, error) {
	var ts int64
	err := k.db.QueryRow(`SELECT updated_at FROM records WHERE key = ?`, key).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, errors.NewNotFound(key)
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return ts, nil
}

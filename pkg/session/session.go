// Package session persists UI settings between runs in a small bbolt file.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/vanderheijden86/pairplot/pkg/debug"
)

// SchemaVersion is bumped when the stored layout changes incompatibly.
const SchemaVersion = 1

var (
	bucketSettings = []byte("settings")
	bucketMeta     = []byte("meta")

	keyTracing       = []byte("tracing")
	keyLastSearch    = []byte("last_search")
	keyLastDataset   = []byte("last_dataset")
	keyUpdatedAt     = []byte("updated_at")
	keySchemaVersion = []byte("schema_version")
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("session store is closed")

// Settings are the values remembered between runs. Tracing is nil when it
// has never been saved, so the configured default applies.
type Settings struct {
	Tracing     *bool
	LastSearch  string
	LastDataset string
	UpdatedAt   time.Time
}

// Store wraps the session database.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the session database at path. It waits at most one
// second for another process holding the file lock.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSettings, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keySchemaVersion); v != nil {
			if n, err := strconv.Atoi(string(v)); err == nil && n != SchemaVersion {
				debug.Log("session: schema %d != %d, resetting settings", n, SchemaVersion)
				if err := tx.DeleteBucket(bucketSettings); err != nil {
					return err
				}
				if _, err := tx.CreateBucket(bucketSettings); err != nil {
					return err
				}
			}
		}
		return meta.Put(keySchemaVersion, []byte(strconv.Itoa(SchemaVersion)))
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s.db == nil {
		return ""
	}
	return s.db.Path()
}

// Load returns the stored settings. A fresh database yields zero Settings.
func (s *Store) Load() (Settings, error) {
	var out Settings
	if s.db == nil {
		return out, ErrClosed
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if v := b.Get(keyTracing); v != nil {
			on, err := strconv.ParseBool(string(v))
			if err != nil {
				return fmt.Errorf("corrupt tracing value %q: %w", v, err)
			}
			out.Tracing = &on
		}
		out.LastSearch = string(b.Get(keyLastSearch))
		out.LastDataset = string(b.Get(keyLastDataset))
		if v := b.Get(keyUpdatedAt); v != nil {
			if ts, err := time.Parse(time.RFC3339Nano, string(v)); err == nil {
				out.UpdatedAt = ts
			}
		}
		return nil
	})
	return out, err
}

// Save stores st. A nil Tracing leaves the stored value untouched.
func (s *Store) Save(st Settings) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if st.Tracing != nil {
			if err := b.Put(keyTracing, []byte(strconv.FormatBool(*st.Tracing))); err != nil {
				return err
			}
		}
		if err := b.Put(keyLastSearch, []byte(st.LastSearch)); err != nil {
			return err
		}
		if err := b.Put(keyLastDataset, []byte(st.LastDataset)); err != nil {
			return err
		}
		return b.Put(keyUpdatedAt, []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
}

// Close closes the database. Closing twice is safe.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Bool returns a pointer to v, for Settings.Tracing.
func Bool(v bool) *bool { return &v }

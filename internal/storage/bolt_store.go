package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

var snapshotBucket = []byte("snapshots")

const expiryBytes = 8

var errBucketMissing = errors.New("snapshot bucket missing")

// boltStore keeps snapshot keys with a unix expiry value.
type boltStore struct {
	db              *bolt.DB
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	sweepMu   sync.Mutex
	lastSweep atomic.Int64
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	s := &boltStore{
		db:              db,
		ttl:             opts.SnapshotTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	s.lastSweep.Store(s.now().Unix())
	return s, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenSnapshot reports whether key was marked and has not expired. Expired keys are removed.
func (b *boltStore) SeenSnapshot(key string) (bool, error) {
	now := b.now()
	if err := b.maybeSweep(now); err != nil {
		return false, err
	}

	var live bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		if bucket == nil {
			return errBucketMissing
		}
		k := []byte(key)
		value := bucket.Get(k)
		if value == nil {
			return nil
		}
		if live = aliveAt(value, now); !live {
			return bucket.Delete(k)
		}
		return nil
	})
	return live, err
}

// MarkSnapshot records key until now+ttl.
func (b *boltStore) MarkSnapshot(key string) error {
	now := b.now()
	if err := b.maybeSweep(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		if bucket == nil {
			return errBucketMissing
		}
		buf := make([]byte, expiryBytes)
		binary.BigEndian.PutUint64(buf, uint64(now.Add(b.ttl).Unix()))
		return bucket.Put([]byte(key), buf)
	})
}

// maybeSweep deletes expired keys at most once per cleanup interval.
func (b *boltStore) maybeSweep(now time.Time) error {
	due := func() bool {
		return now.Sub(time.Unix(b.lastSweep.Load(), 0)) >= b.cleanupInterval
	}
	if !due() {
		return nil
	}

	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()
	if !due() {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		if bucket == nil {
			return errBucketMissing
		}
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if aliveAt(v, now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastSweep.Store(now.Unix())
	}
	return err
}

// aliveAt decodes a stored expiry; malformed values count as expired.
func aliveAt(value []byte, now time.Time) bool {
	if len(value) != expiryBytes {
		return false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	return unix > 0 && time.Unix(unix, 0).After(now)
}

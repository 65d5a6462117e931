package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreMarksAndExpiresSnapshots(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "snapshots.db"), Options{
		SnapshotTTL:     time.Minute,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	clock := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return clock }

	seen, err := store.SeenSnapshot("iss:abc")
	if err != nil || seen {
		t.Fatalf("expected unseen snapshot, seen=%v err=%v", seen, err)
	}
	if err := store.MarkSnapshot("iss:abc"); err != nil {
		t.Fatalf("MarkSnapshot: %v", err)
	}
	if seen, err = store.SeenSnapshot("iss:abc"); err != nil || !seen {
		t.Fatalf("expected snapshot seen, got seen=%v err=%v", seen, err)
	}

	clock = clock.Add(2 * time.Minute)
	if seen, err = store.SeenSnapshot("iss:abc"); err != nil || seen {
		t.Fatalf("expected snapshot to expire, got seen=%v err=%v", seen, err)
	}
}

func TestBoltStoreSweepRemovesExpired(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "snapshots.db"), Options{
		SnapshotTTL:     time.Second,
		CleanupInterval: time.Second,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	clock := time.Now()
	store.now = func() time.Time { return clock }
	if err := store.MarkSnapshot("astronauts:1"); err != nil {
		t.Fatalf("MarkSnapshot: %v", err)
	}

	clock = clock.Add(5 * time.Second)
	if err := store.MarkSnapshot("astronauts:2"); err != nil {
		t.Fatalf("MarkSnapshot: %v", err)
	}

	var keys int
	if err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).ForEach(func(_, _ []byte) error {
			keys++
			return nil
		})
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if keys != 1 {
		t.Fatalf("expected sweep to leave 1 key, got %d", keys)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkSnapshot("x"); err != nil {
		t.Fatalf("noop store MarkSnapshot: %v", err)
	}
	if seen, _ := store.SeenSnapshot("x"); seen {
		t.Fatalf("noop store must never report seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}

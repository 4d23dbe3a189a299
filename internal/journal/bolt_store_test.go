package journal

import (
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreRecordsNewestFirst(t *testing.T) {
	storeRaw, err := openBolt(t.TempDir()+"/journal.db", normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	base := time.Now().UTC()
	for i, tool := range []string{"fetch_prices", "place_order", "cancel_order"} {
		if err := store.Record(Entry{Tool: tool, StartedAt: base.Add(time.Duration(i) * time.Millisecond)}); err != nil {
			t.Fatalf("Record %s: %v", tool, err)
		}
	}

	entries, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 || entries[0].Tool != "cancel_order" || entries[1].Tool != "place_order" {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	all, err := store.Recent(0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d err=%v", len(all), err)
	}
}

func TestBoltStoreExpiresEntries(t *testing.T) {
	opts := Options{
		EntryTTL:        1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}
	storeRaw, err := openBolt(t.TempDir()+"/journal.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if err := store.Record(Entry{Tool: "fetch_holdings", Error: "upstream down", UpstreamStatus: 503}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	entries, err := store.Recent(0)
	if err != nil || len(entries) != 1 || entries[0].UpstreamStatus != 503 {
		t.Fatalf("expected recorded entry, got %#v err=%v", entries, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	entries, err = store.Recent(0)
	if err != nil {
		t.Fatalf("Recent after expiry: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected expired entry to be hidden, got %#v", entries)
	}

	if err := store.maybeCleanupExpired(time.Now()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	var keys int
	if err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(invocationBucket)).ForEach(func(_, _ []byte) error {
			keys++
			return nil
		})
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if keys != 0 {
		t.Fatalf("expected expired entry to be removed, %d keys remain", keys)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(Entry{Tool: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected missing path error")
	}
}

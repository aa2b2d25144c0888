package storage

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arcadeledger/core/entitlement"
)

func seededManager(t *testing.T, now int64) *entitlement.Manager {
	t.Helper()
	m := entitlement.NewManager()
	m.SetNowFunc(func() time.Time { return time.Unix(now, 0) })
	records := []entitlement.Record{
		{Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Amount: big.NewInt(1000)},
		{Address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Amount: big.NewInt(2000)},
	}
	if _, err := m.BatchAddEntitlements(records); err != nil {
		t.Fatalf("seed whitelist: %v", err)
	}
	return m
}

func TestSnapshotSaveAndLoadLatest(t *testing.T) {
	store := NewSnapshotStore(NewMemDB())
	manager := seededManager(t, 1700000000)
	snapshot := manager.ExportSnapshot()

	if err := store.Save(snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if loaded.Root != snapshot.Root || loaded.ID != snapshot.ID || loaded.Timestamp != snapshot.Timestamp {
		t.Fatalf("loaded snapshot %+v differs from saved %+v", loaded, snapshot)
	}
	if len(loaded.Records) != len(snapshot.Records) {
		t.Fatalf("loaded %d records, want %d", len(loaded.Records), len(snapshot.Records))
	}
	for i := range snapshot.Records {
		if loaded.Records[i] != snapshot.Records[i] {
			t.Fatalf("record %d: %+v != %+v", i, loaded.Records[i], snapshot.Records[i])
		}
	}

	// Replaying the stored snapshot must reproduce the committed root.
	restored := entitlement.NewManager()
	if _, err := restored.ImportSnapshot(loaded); err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.Root() != manager.Root() {
		t.Fatalf("restored root %x, want %x", restored.Root(), manager.Root())
	}
}

func TestSnapshotLoadByRoot(t *testing.T) {
	store := NewSnapshotStore(NewMemDB())
	manager := seededManager(t, 1700000000)
	snapshot := manager.ExportSnapshot()
	if err := store.Save(snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(manager.Root())
	if err != nil {
		t.Fatalf("load by root: %v", err)
	}
	if loaded.Root != snapshot.Root {
		t.Fatalf("loaded root %s, want %s", loaded.Root, snapshot.Root)
	}

	if _, err := store.Load(common.HexToHash("0x01")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown root, got %v", err)
	}
}

func TestSnapshotStoreEmpty(t *testing.T) {
	store := NewSnapshotStore(NewMemDB())
	if _, err := store.LoadLatest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	history, err := store.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("empty store has %d history entries", len(history))
	}
}

func TestSnapshotHistoryOrdering(t *testing.T) {
	store := NewSnapshotStore(NewMemDB())
	manager := seededManager(t, 1700000000)
	first := manager.ExportSnapshot()
	if err := store.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	manager.SetNowFunc(func() time.Time { return time.Unix(1700000100, 0) })
	if _, err := manager.AddEntitlement("0xcccccccccccccccccccccccccccccccccccccccc", big.NewInt(500)); err != nil {
		t.Fatalf("add: %v", err)
	}
	second := manager.ExportSnapshot()
	if err := store.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	history, err := store.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	if history[0].Root.Hex() != first.Root || history[1].Root.Hex() != second.Root {
		t.Fatalf("history out of order: %v", history)
	}
	if history[0].Timestamp != 1700000000 || history[1].Timestamp != 1700000100 {
		t.Fatalf("history timestamps %d, %d", history[0].Timestamp, history[1].Timestamp)
	}

	latest, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if latest.Root != second.Root {
		t.Fatalf("latest root %s, want %s", latest.Root, second.Root)
	}
}

func TestSnapshotSaveRejectsMalformedInput(t *testing.T) {
	store := NewSnapshotStore(NewMemDB())
	if err := store.Save(nil); err == nil {
		t.Fatal("expected error for nil snapshot")
	}
	if err := store.Save(&entitlement.Snapshot{Root: "garbage"}); err == nil {
		t.Fatal("expected error for malformed root")
	}
	manager := seededManager(t, 1700000000)
	snapshot := manager.ExportSnapshot()
	snapshot.Records = append(snapshot.Records, entitlement.SnapshotRecord{Address: "bogus", Amount: "1"})
	if err := store.Save(snapshot); !errors.Is(err, entitlement.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

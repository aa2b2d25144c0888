package storage

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"arcadeledger/core/entitlement"
)

var (
	snapshotPrefix = []byte("whitelist/snapshot/")
	latestRootKey  = []byte("whitelist/snapshot/latest")
	rootHistoryKey = []byte("whitelist/roots")
)

type storedRecord struct {
	Address [20]byte
	Amount  string
}

type storedSnapshot struct {
	ID        string
	Records   []storedRecord
	Root      [32]byte
	Timestamp uint64
}

type storedRootEntry struct {
	Root      [32]byte
	Timestamp uint64
}

// RootEntry is one committed root in the store's history.
type RootEntry struct {
	Root      common.Hash
	Timestamp int64
}

// SnapshotStore persists whitelist snapshots keyed by the root they commit
// to, alongside a latest-root pointer and an append-only root history. It is
// the durability collaborator the commitment manager itself deliberately
// does not have: the host saves every export here and replays the latest one
// on startup.
type SnapshotStore struct {
	db Database
}

// NewSnapshotStore constructs a store bound to the provided database.
func NewSnapshotStore(db Database) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save persists the snapshot, advances the latest pointer and appends the
// root to the history. Unlike manager imports, malformed records here are an
// error: anything reaching the store came out of ExportSnapshot and must be
// canonical already.
func (s *SnapshotStore) Save(snapshot *entitlement.Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: snapshot store not initialised")
	}
	if snapshot == nil {
		return fmt.Errorf("storage: nil snapshot")
	}
	root, err := parseRoot(snapshot.Root)
	if err != nil {
		return err
	}

	stored := storedSnapshot{ID: strings.TrimSpace(snapshot.ID), Root: [32]byte(root)}
	if snapshot.Timestamp > 0 {
		stored.Timestamp = uint64(snapshot.Timestamp)
	}
	stored.Records = make([]storedRecord, 0, len(snapshot.Records))
	for _, record := range snapshot.Records {
		addr, err := entitlement.CanonicalAddress(record.Address)
		if err != nil {
			return fmt.Errorf("storage: snapshot record: %w", err)
		}
		if _, err := entitlement.ParseAmount(record.Amount); err != nil {
			return fmt.Errorf("storage: snapshot record %s: %w", record.Address, err)
		}
		stored.Records = append(stored.Records, storedRecord{Address: [20]byte(addr), Amount: strings.TrimSpace(record.Amount)})
	}

	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	if err := s.db.Put(snapshotKey(root), encoded); err != nil {
		return err
	}
	if err := s.db.Put(latestRootKey, root.Bytes()); err != nil {
		return err
	}
	return s.appendHistory(storedRootEntry{Root: root, Timestamp: stored.Timestamp})
}

// Load retrieves the snapshot committed to by the supplied root. ErrNotFound
// is returned when no snapshot with that root has been saved.
func (s *SnapshotStore) Load(root common.Hash) (*entitlement.Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: snapshot store not initialised")
	}
	encoded, err := s.db.Get(snapshotKey(root))
	if err != nil {
		return nil, err
	}
	var stored storedSnapshot
	if err := rlp.DecodeBytes(encoded, &stored); err != nil {
		return nil, fmt.Errorf("storage: decode snapshot: %w", err)
	}
	return fromStored(&stored)
}

// LoadLatest retrieves the most recently saved snapshot, or ErrNotFound when
// the store is empty.
func (s *SnapshotStore) LoadLatest() (*entitlement.Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: snapshot store not initialised")
	}
	rootBytes, err := s.db.Get(latestRootKey)
	if err != nil {
		return nil, err
	}
	return s.Load(common.BytesToHash(rootBytes))
}

// History returns every committed root in save order.
func (s *SnapshotStore) History() ([]RootEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: snapshot store not initialised")
	}
	stored, err := s.loadHistory()
	if err != nil {
		return nil, err
	}
	entries := make([]RootEntry, 0, len(stored))
	for _, entry := range stored {
		timestamp, err := uint64ToInt64(entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("storage: history entry: %w", err)
		}
		entries = append(entries, RootEntry{Root: common.Hash(entry.Root), Timestamp: timestamp})
	}
	return entries, nil
}

func (s *SnapshotStore) appendHistory(entry storedRootEntry) error {
	history, err := s.loadHistory()
	if err != nil {
		return err
	}
	history = append(history, entry)
	encoded, err := rlp.EncodeToBytes(history)
	if err != nil {
		return err
	}
	return s.db.Put(rootHistoryKey, encoded)
}

func (s *SnapshotStore) loadHistory() ([]storedRootEntry, error) {
	encoded, err := s.db.Get(rootHistoryKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var history []storedRootEntry
	if err := rlp.DecodeBytes(encoded, &history); err != nil {
		return nil, fmt.Errorf("storage: decode root history: %w", err)
	}
	return history, nil
}

func fromStored(stored *storedSnapshot) (*entitlement.Snapshot, error) {
	timestamp, err := uint64ToInt64(stored.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("storage: snapshot timestamp: %w", err)
	}
	snapshot := &entitlement.Snapshot{
		ID:        stored.ID,
		Root:      common.Hash(stored.Root).Hex(),
		Timestamp: timestamp,
		Records:   make([]entitlement.SnapshotRecord, 0, len(stored.Records)),
	}
	for _, record := range stored.Records {
		snapshot.Records = append(snapshot.Records, entitlement.SnapshotRecord{
			Address: entitlement.CanonicalAddressString(common.Address(record.Address)),
			Amount:  record.Amount,
		})
	}
	return snapshot, nil
}

func parseRoot(text string) (common.Hash, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "0x") || len(trimmed) != 66 {
		return common.Hash{}, fmt.Errorf("storage: malformed root %q", text)
	}
	decoded, err := hexutil.Decode(trimmed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("storage: malformed root %q: %w", text, err)
	}
	return common.BytesToHash(decoded), nil
}

func snapshotKey(root common.Hash) []byte {
	buf := make([]byte, len(snapshotPrefix)+len(root))
	copy(buf, snapshotPrefix)
	copy(buf[len(snapshotPrefix):], root.Bytes())
	return buf
}

func uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds int64 range", value)
	}
	return int64(value), nil
}

package entitlement

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"arcadeledger/core/events"
	"arcadeledger/merkle"
	"arcadeledger/observability/metrics"
)

// Record is an entitlement awaiting insertion: an account identifier and a
// positive withdrawable amount in the smallest currency unit.
type Record struct {
	Address string
	Amount  *big.Int
}

// AddResult reports the canonical form of an inserted record and the root
// reflecting it.
type AddResult struct {
	Address string
	Amount  *big.Int
	Root    common.Hash
}

// RemoveResult reports whether a record was actually deleted. Removing a
// non-member is not an error; Removed is false and Root is unchanged.
type RemoveResult struct {
	Address string
	Removed bool
	Root    common.Hash
}

// BatchResult summarises a batch insert or snapshot import. Added counts only
// records that passed validation and were written; Skipped counts records
// rejected by validation; Total is the whitelist size afterwards.
type BatchResult struct {
	Added   int
	Skipped int
	Total   int
	Root    common.Hash
}

// Proof is a self-verified inclusion proof for a whitelisted record. Siblings
// are ordered leaf-first; together with the leaf they recompute Root without
// position information because pair hashing is sorted.
type Proof struct {
	Address  string
	Amount   *big.Int
	Leaf     common.Hash
	Siblings []common.Hash
	Root     common.Hash
	Verified bool
}

// Manager owns the withdrawal whitelist and its Merkle commitment. Every
// mutation rebuilds the tree in full, so the published root is always a pure
// function of the current record set. All operations are safe for concurrent
// use: mutations serialize behind a write lock and readers never observe a
// half-rebuilt tree.
type Manager struct {
	mu      sync.RWMutex
	entries map[common.Address]*uint256.Int
	tree    *merkle.Tree // nil while the whitelist is empty
	root    common.Hash

	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() time.Time
}

// NewManager creates an empty whitelist. The root starts at the empty
// sentinel (all zero bytes).
func NewManager() *Manager {
	return &Manager{
		entries: make(map[common.Address]*uint256.Int),
		root:    merkle.EmptyRoot,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   time.Now,
	}
}

// SetEmitter configures the event emitter used by the manager. Passing nil
// resets it to a no-op implementation.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// SetLogger overrides the structured logger.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		m.logger = slog.Default()
		return
	}
	m.logger = logger
}

// SetNowFunc overrides the time source (primarily for deterministic testing).
func (m *Manager) SetNowFunc(now func() time.Time) {
	if now == nil {
		m.nowFn = time.Now
		return
	}
	m.nowFn = now
}

// AddEntitlement inserts or overwrites the record for the canonical address
// and rebuilds the commitment.
func (m *Manager) AddEntitlement(address string, amount *big.Int) (*AddResult, error) {
	addr, err := CanonicalAddress(address)
	if err != nil {
		metrics.Whitelist().RecordRejected("address")
		return nil, err
	}
	value, err := normalizeAmount(amount)
	if err != nil {
		metrics.Whitelist().RecordRejected("amount")
		return nil, err
	}

	m.mu.Lock()
	m.entries[addr] = value
	if err := m.rebuildLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	root := m.root
	m.mu.Unlock()

	canonical := CanonicalAddressString(addr)
	metrics.Whitelist().RecordMutation("add")
	m.emitter.Emit(events.EntitlementAdded{Address: canonical, Amount: value.ToBig(), Root: root.Hex()})
	m.logger.Info("entitlement added", "address", canonical, "amount", value.Dec(), "root", root.Hex())
	return &AddResult{Address: canonical, Amount: value.ToBig(), Root: root}, nil
}

// RemoveEntitlement deletes the record if present. The tree is rebuilt only
// when a record was actually removed.
func (m *Manager) RemoveEntitlement(address string) (*RemoveResult, error) {
	addr, err := CanonicalAddress(address)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	_, present := m.entries[addr]
	if present {
		delete(m.entries, addr)
		if err := m.rebuildLocked(); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	root := m.root
	m.mu.Unlock()

	canonical := CanonicalAddressString(addr)
	if present {
		metrics.Whitelist().RecordMutation("remove")
		m.emitter.Emit(events.EntitlementRemoved{Address: canonical, Root: root.Hex()})
		m.logger.Info("entitlement removed", "address", canonical, "root", root.Hex())
	}
	return &RemoveResult{Address: canonical, Removed: present, Root: root}, nil
}

// BatchAddEntitlements attempts each record independently: a validation
// failure is counted and skipped, never fatal to the batch. The tree is
// rebuilt exactly once after the whole batch when at least one record was
// written.
func (m *Manager) BatchAddEntitlements(records []Record) (*BatchResult, error) {
	m.mu.Lock()
	added, skipped := 0, 0
	for _, record := range records {
		addr, err := CanonicalAddress(record.Address)
		if err != nil {
			skipped++
			metrics.Whitelist().RecordRejected("address")
			m.logger.Warn("batch record skipped", "address", record.Address, "err", err)
			continue
		}
		value, err := normalizeAmount(record.Amount)
		if err != nil {
			skipped++
			metrics.Whitelist().RecordRejected("amount")
			m.logger.Warn("batch record skipped", "address", record.Address, "err", err)
			continue
		}
		m.entries[addr] = value
		added++
	}
	if added > 0 {
		if err := m.rebuildLocked(); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	total := len(m.entries)
	root := m.root
	m.mu.Unlock()

	if added > 0 {
		metrics.Whitelist().RecordMutation("batch")
	}
	m.logger.Info("batch entitlements processed", "added", added, "skipped", skipped, "total", total, "root", root.Hex())
	return &BatchResult{Added: added, Skipped: skipped, Total: total, Root: root}, nil
}

// Proof builds and self-verifies an inclusion proof for a whitelisted
// address. A proof that fails its own verification is reported as
// ErrInternalInconsistency rather than returned.
func (m *Manager) Proof(address string) (*Proof, error) {
	addr, err := CanonicalAddress(address)
	if err != nil {
		metrics.Whitelist().RecordProofFailure("address")
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	amount, ok := m.entries[addr]
	if !ok || m.tree == nil {
		metrics.Whitelist().RecordProofFailure("not_whitelisted")
		return nil, fmt.Errorf("%w: %s", ErrNotWhitelisted, CanonicalAddressString(addr))
	}
	leaf := LeafHash(addr, amount)
	siblings, err := m.tree.Proof(leaf)
	if err != nil {
		metrics.Whitelist().RecordProofFailure("internal")
		return nil, fmt.Errorf("%w: %v", ErrInternalInconsistency, err)
	}
	if !merkle.VerifyProof(leaf, siblings, m.root) {
		metrics.Whitelist().RecordProofFailure("internal")
		return nil, fmt.Errorf("%w: root %s", ErrInternalInconsistency, m.root.Hex())
	}

	metrics.Whitelist().RecordProofServed()
	return &Proof{
		Address:  CanonicalAddressString(addr),
		Amount:   amount.ToBig(),
		Leaf:     leaf,
		Siblings: siblings,
		Root:     m.root,
		Verified: true,
	}, nil
}

// IsWhitelisted reports membership. A malformed address is simply not a
// member; it does not error.
func (m *Manager) IsWhitelisted(address string) bool {
	addr, err := CanonicalAddress(address)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[addr]
	return ok
}

// Entitlement returns the withdrawable amount for an address, if present.
func (m *Manager) Entitlement(address string) (*big.Int, bool) {
	addr, err := CanonicalAddress(address)
	if err != nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	amount, ok := m.entries[addr]
	if !ok {
		return nil, false
	}
	return amount.ToBig(), true
}

// Root returns the current commitment. It is the empty sentinel while the
// whitelist is empty.
func (m *Manager) Root() common.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root
}

// Size returns the number of whitelisted addresses.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// rebuildLocked recomputes the tree and root from the current record set.
// Callers must hold the write lock.
func (m *Manager) rebuildLocked() error {
	started := m.nowFn()
	if len(m.entries) == 0 {
		m.tree = nil
		m.root = merkle.EmptyRoot
		metrics.Whitelist().RecordRebuild(m.nowFn().Sub(started), 0)
		return nil
	}
	leaves := make([]common.Hash, 0, len(m.entries))
	for addr, amount := range m.entries {
		leaves = append(leaves, LeafHash(addr, amount))
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return fmt.Errorf("%w: rebuild: %v", ErrInternalInconsistency, err)
	}
	m.tree = tree
	m.root = tree.Root()
	metrics.Whitelist().RecordRebuild(m.nowFn().Sub(started), len(leaves))
	return nil
}

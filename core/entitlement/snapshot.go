package entitlement

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"arcadeledger/core/events"
	"arcadeledger/observability/metrics"
)

// SnapshotRecord is the serialized form of one entitlement: canonical
// lowercase hex address and base-10 amount.
type SnapshotRecord struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// Snapshot is a bulk export of the whitelist together with the root it
// commits to. Records are sorted by address so equal whitelists serialize
// identically (the ID and timestamp aside).
type Snapshot struct {
	ID        string           `json:"id"`
	Records   []SnapshotRecord `json:"records"`
	Root      string           `json:"root"`
	Timestamp int64            `json:"timestamp"`
}

// ParseAmount parses a base-10 entitlement amount and applies the same
// validation rules as AddEntitlement.
func ParseAmount(text string) (*big.Int, error) {
	value, err := parseAmountValue(text)
	if err != nil {
		return nil, err
	}
	return value.ToBig(), nil
}

// ExportSnapshot serializes the current whitelist and root.
func (m *Manager) ExportSnapshot() *Snapshot {
	m.mu.RLock()
	records := make([]SnapshotRecord, 0, len(m.entries))
	for addr, amount := range m.entries {
		records = append(records, SnapshotRecord{
			Address: CanonicalAddressString(addr),
			Amount:  amount.Dec(),
		})
	}
	root := m.root
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Address < records[j].Address })
	return &Snapshot{
		ID:        uuid.NewString(),
		Records:   records,
		Root:      root.Hex(),
		Timestamp: m.nowFn().UTC().Unix(),
	}
}

// ImportSnapshot fully replaces the whitelist with the snapshot's records:
// clear, validate and insert each record, then rebuild once. Records failing
// the AddEntitlement validation rules are skipped, not fatal.
func (m *Manager) ImportSnapshot(snapshot *Snapshot) (*BatchResult, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("entitlement: nil snapshot")
	}

	m.mu.Lock()
	m.entries = make(map[common.Address]*uint256.Int, len(snapshot.Records))
	added, skipped := 0, 0
	for _, record := range snapshot.Records {
		addr, err := CanonicalAddress(record.Address)
		if err != nil {
			skipped++
			metrics.Whitelist().RecordRejected("address")
			m.logger.Warn("snapshot record skipped", "address", record.Address, "err", err)
			continue
		}
		amount, err := parseAmountValue(record.Amount)
		if err != nil {
			skipped++
			metrics.Whitelist().RecordRejected("amount")
			m.logger.Warn("snapshot record skipped", "address", record.Address, "err", err)
			continue
		}
		m.entries[addr] = amount
		added++
	}
	if err := m.rebuildLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	total := len(m.entries)
	root := m.root
	m.mu.Unlock()

	metrics.Whitelist().RecordMutation("import")
	m.emitter.Emit(events.WhitelistImported{Added: added, Skipped: skipped, Root: root.Hex()})
	m.logger.Info("whitelist imported", "added", added, "skipped", skipped, "root", root.Hex())
	return &BatchResult{Added: added, Skipped: skipped, Total: total, Root: root}, nil
}

func parseAmountValue(text string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(text)
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base-10 integer", ErrInvalidAmount, text)
	}
	return normalizeAmount(amount)
}

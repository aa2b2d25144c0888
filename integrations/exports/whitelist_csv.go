package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"time"

	"arcadeledger/core/entitlement"
)

// WhitelistCSV builds a CSV export of a whitelist snapshot for reconciliation
// against the custodial contract's books, returning the serialised data
// alongside a SHA-256 checksum of the payload. Record order follows the
// snapshot, which is sorted by address, so equal snapshots serialize to equal
// payloads.
func WhitelistCSV(snapshot *entitlement.Snapshot) ([]byte, string, error) {
	if snapshot == nil {
		return nil, "", fmt.Errorf("exports: nil snapshot")
	}
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"address", "amount", "root", "snapshot_id", "exported_at"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	exportedAt := time.Unix(snapshot.Timestamp, 0).UTC().Format(time.RFC3339)
	for _, record := range snapshot.Records {
		row := []string{
			record.Address,
			record.Amount,
			snapshot.Root,
			snapshot.ID,
			exportedAt,
		}
		if err := writer.Write(row); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

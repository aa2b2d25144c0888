package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"arcadeledger/core/entitlement"
)

// WhitelistJSONL builds a JSON Lines export of a whitelist snapshot and
// returns the serialised payload alongside a SHA-256 checksum.
func WhitelistJSONL(snapshot *entitlement.Snapshot) ([]byte, string, error) {
	if snapshot == nil {
		return nil, "", fmt.Errorf("exports: nil snapshot")
	}
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	exportedAt := time.Unix(snapshot.Timestamp, 0).UTC().Format(time.RFC3339)
	for _, record := range snapshot.Records {
		payload := map[string]interface{}{
			"address":     record.Address,
			"amount":      record.Amount,
			"root":        snapshot.Root,
			"snapshot_id": snapshot.ID,
			"exported_at": exportedAt,
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"arcadeledger/core/entitlement"
)

type seedAllocation struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

type seedFile struct {
	Allocations []seedAllocation `yaml:"allocations"`
}

// LoadSeed parses a YAML allocation file into batch-insert records. Entries
// with unparseable amounts are passed through with a nil amount so the
// manager's batch validation counts and skips them; the file itself failing
// to parse is an error.
func LoadSeed(path string) ([]entitlement.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed seedFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	records := make([]entitlement.Record, 0, len(parsed.Allocations))
	for _, allocation := range parsed.Allocations {
		record := entitlement.Record{Address: allocation.Address}
		if amount, err := entitlement.ParseAmount(allocation.Amount); err == nil {
			record.Amount = amount
		}
		records = append(records, record)
	}
	return records, nil
}

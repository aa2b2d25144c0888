package events

import "math/big"

const (
	TypeEntitlementAdded   = "whitelist.entitlement.added"
	TypeEntitlementRemoved = "whitelist.entitlement.removed"
	TypeWhitelistImported  = "whitelist.imported"
)

// EntitlementAdded is emitted after an address is inserted or its amount
// overwritten and the commitment rebuilt.
type EntitlementAdded struct {
	Address string
	Amount  *big.Int
	Root    string
}

func (EntitlementAdded) EventType() string { return TypeEntitlementAdded }

// EntitlementRemoved is emitted after a present record is deleted.
type EntitlementRemoved struct {
	Address string
	Root    string
}

func (EntitlementRemoved) EventType() string { return TypeEntitlementRemoved }

// WhitelistImported is emitted after a snapshot import replaces the whitelist.
type WhitelistImported struct {
	Added   int
	Skipped int
	Root    string
}

func (WhitelistImported) EventType() string { return TypeWhitelistImported }

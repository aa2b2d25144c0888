package entitlement

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// CanonicalAddress validates the supplied account identifier and returns its
// 20-byte form. Any hex spelling of the same bytes (checksummed, upper, lower,
// with or without 0x) canonicalizes to the same value.
func CanonicalAddress(address string) (common.Address, error) {
	trimmed := strings.TrimSpace(address)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(trimmed), nil
}

// CanonicalAddressString renders the canonical textual form used as the
// whitelist key and in snapshots: lowercase hex with a 0x prefix.
func CanonicalAddressString(addr common.Address) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// normalizeAmount enforces the amount contract: a positive integer that fits
// in 256 bits.
func normalizeAmount(amount *big.Int) (*uint256.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("%w: amount required", ErrInvalidAmount)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s is not a positive integer", ErrInvalidAmount, amount.String())
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrInvalidAmount, amount.String())
	}
	return value, nil
}

// LeafForRecord validates a textual record and computes its commitment leaf.
// It is what an external verifier runs before checking a proof path.
func LeafForRecord(address string, amount *big.Int) (common.Hash, error) {
	addr, err := CanonicalAddress(address)
	if err != nil {
		return common.Hash{}, err
	}
	value, err := normalizeAmount(amount)
	if err != nil {
		return common.Hash{}, err
	}
	return LeafHash(addr, value), nil
}

// LeafHash computes the commitment leaf for an entitlement record:
// Keccak-256 over the 20 address bytes concatenated with the amount encoded
// as 32 big-endian bytes. An on-chain verifier reconstructs this exact byte
// layout independently, so it must not change.
func LeafHash(addr common.Address, amount *uint256.Int) common.Hash {
	encoded := amount.Bytes32()
	return common.BytesToHash(ethcrypto.Keccak256(addr.Bytes(), encoded[:]))
}

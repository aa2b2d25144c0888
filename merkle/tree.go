package merkle

import (
	"bytes"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrNoLeaves is returned when a tree is requested over an empty leaf set.
	// Callers represent the empty commitment with EmptyRoot instead.
	ErrNoLeaves = errors.New("merkle: tree requires at least one leaf")
	// ErrLeafNotFound is returned when a proof is requested for a leaf the
	// tree does not contain.
	ErrLeafNotFound = errors.New("merkle: leaf not present in tree")
)

// EmptyRoot is the commitment published for an empty leaf set.
var EmptyRoot = common.Hash{}

// Tree is an immutable Keccak-256 Merkle tree using sorted-pair hashing:
// each pair of child hashes is ordered bytewise before concatenation, so a
// proof verifies without carrying left/right position information. This
// matches the symmetric comparison performed by on-chain verifiers.
//
// Leaves are sorted bytewise during construction, making the root a pure
// function of the leaf set regardless of insertion order. An odd node at any
// level is promoted to the next level unchanged.
//
// Tree is safe for concurrent readers; it is never mutated after NewTree.
type Tree struct {
	levels [][]common.Hash
}

// NewTree builds a tree over the supplied leaf hashes. The input slice is not
// retained or modified.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}
	base := make([]common.Hash, len(leaves))
	copy(base, leaves)
	sort.Slice(base, func(i, j int) bool {
		return bytes.Compare(base[i][:], base[j][:]) < 0
	})

	levels := [][]common.Hash{base}
	for current := base; len(current) > 1; {
		next := make([]common.Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, hashPair(current[i], current[i+1]))
			} else {
				// odd node, promoted unchanged
				next = append(next, current[i])
			}
		}
		levels = append(levels, next)
		current = next
	}
	return &Tree{levels: levels}, nil
}

// Root returns the tree's commitment.
func (t *Tree) Root() common.Hash {
	return t.levels[len(t.levels)-1][0]
}

// Len returns the number of leaves committed to.
func (t *Tree) Len() int {
	return len(t.levels[0])
}

// Leaves returns a copy of the sorted leaf level.
func (t *Tree) Leaves() []common.Hash {
	leaves := make([]common.Hash, len(t.levels[0]))
	copy(leaves, t.levels[0])
	return leaves
}

// Proof collects the sibling hashes on the path from the supplied leaf to the
// root, ordered leaf-first. Levels where the node was promoted without a
// sibling contribute no element.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, error) {
	idx := -1
	for i, candidate := range t.levels[0] {
		if candidate == leaf {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrLeafNotFound
	}

	proof := make([]common.Hash, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		idx /= 2
	}
	return proof, nil
}

// VerifyProof recomputes the root from a leaf and its sibling path and
// reports whether it matches the expected root. The check is stateless so an
// independent verifier can run it with only the leaf, path and root.
func VerifyProof(leaf common.Hash, proof []common.Hash, root common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return common.BytesToHash(ethcrypto.Keccak256(a[:], b[:]))
}

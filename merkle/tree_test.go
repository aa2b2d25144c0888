package merkle

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func testLeaves(n int) []common.Hash {
	leaves := make([]common.Hash, n)
	for i := range leaves {
		leaves[i] = common.BytesToHash(ethcrypto.Keccak256([]byte(fmt.Sprintf("leaf-%d", i))))
	}
	return leaves
}

func TestNewTreeRejectsEmptyLeafSet(t *testing.T) {
	if _, err := NewTree(nil); err != ErrNoLeaves {
		t.Fatalf("expected ErrNoLeaves, got %v", err)
	}
}

func TestSingleLeafRootIsLeaf(t *testing.T) {
	leaves := testLeaves(1)
	tree, err := NewTree(leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	if tree.Root() != leaves[0] {
		t.Fatalf("single leaf tree root %x, want leaf %x", tree.Root(), leaves[0])
	}
	proof, err := tree.Proof(leaves[0])
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if len(proof) != 0 {
		t.Fatalf("single leaf proof should be empty, got %d siblings", len(proof))
	}
	if !VerifyProof(leaves[0], proof, tree.Root()) {
		t.Fatal("empty proof failed to verify against single leaf root")
	}
}

func TestRootIndependentOfLeafOrder(t *testing.T) {
	leaves := testLeaves(7)
	forward, err := NewTree(leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	reversed := make([]common.Hash, len(leaves))
	for i, leaf := range leaves {
		reversed[len(leaves)-1-i] = leaf
	}
	backward, err := NewTree(reversed)
	if err != nil {
		t.Fatalf("build reversed tree: %v", err)
	}
	if forward.Root() != backward.Root() {
		t.Fatalf("root depends on leaf order: %x vs %x", forward.Root(), backward.Root())
	}
}

func TestProofRoundTripAllSizes(t *testing.T) {
	for n := 1; n <= 8; n++ {
		leaves := testLeaves(n)
		tree, err := NewTree(leaves)
		if err != nil {
			t.Fatalf("size %d: build tree: %v", n, err)
		}
		for _, leaf := range leaves {
			proof, err := tree.Proof(leaf)
			if err != nil {
				t.Fatalf("size %d: proof for %x: %v", n, leaf, err)
			}
			if !VerifyProof(leaf, proof, tree.Root()) {
				t.Fatalf("size %d: proof for %x failed verification", n, leaf)
			}
		}
	}
}

func TestProofRejectsUnknownLeaf(t *testing.T) {
	tree, err := NewTree(testLeaves(4))
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	unknown := common.BytesToHash(ethcrypto.Keccak256([]byte("not-a-member")))
	if _, err := tree.Proof(unknown); err != ErrLeafNotFound {
		t.Fatalf("expected ErrLeafNotFound, got %v", err)
	}
}

func TestTamperedProofFailsVerification(t *testing.T) {
	leaves := testLeaves(5)
	tree, err := NewTree(leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	proof, err := tree.Proof(leaves[2])
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if len(proof) == 0 {
		t.Fatal("expected non-empty proof for five leaves")
	}

	tampered := make([]common.Hash, len(proof))
	copy(tampered, proof)
	tampered[0][0] ^= 0xff
	if VerifyProof(leaves[2], tampered, tree.Root()) {
		t.Fatal("tampered sibling verified against root")
	}

	wrongLeaf := leaves[2]
	wrongLeaf[31] ^= 0x01
	if VerifyProof(wrongLeaf, proof, tree.Root()) {
		t.Fatal("mutated leaf verified against root")
	}
}

func TestRootChangesWithLeafSet(t *testing.T) {
	small, err := NewTree(testLeaves(3))
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	large, err := NewTree(testLeaves(4))
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	if small.Root() == large.Root() {
		t.Fatal("distinct leaf sets produced identical roots")
	}
	if small.Root() == EmptyRoot || large.Root() == EmptyRoot {
		t.Fatal("non-empty tree produced the empty sentinel root")
	}
}

func TestProofSiblingsOmittedForPromotedNodes(t *testing.T) {
	// With three leaves the bytewise-largest leaf is promoted at the first
	// level and pairs only at the second, so its proof has one sibling.
	leaves := testLeaves(3)
	tree, err := NewTree(leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	sorted := tree.Leaves()
	proof, err := tree.Proof(sorted[2])
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if len(proof) != 1 {
		t.Fatalf("promoted leaf proof length %d, want 1", len(proof))
	}
	if !VerifyProof(sorted[2], proof, tree.Root()) {
		t.Fatal("promoted leaf proof failed verification")
	}
}

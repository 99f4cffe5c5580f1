// Package proofs implements the Merkle commitment scheme for reward payout
// tables: double-hashed leaves for domain separation and byte-lexicographic
// sibling ordering so a proof verifies regardless of construction order.
package proofs

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lumen-labs/yield-ledger/pkg/utils"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
)

var hasher = keccak256.New()

// EncodeLeaf produces the canonical byte encoding of one payout-table row.
func EncodeLeaf(account string, amount string) []byte {
	return []byte(fmt.Sprintf("%s:%s", utils.NormalizeAccount(account), amount))
}

// LeafHash hashes the encoded row twice. The second hash separates leaves
// from internal nodes so a proof cannot present an internal node as a leaf.
func LeafHash(account string, amount string) []byte {
	return hasher.Hash(hasher.Hash(EncodeLeaf(account, amount)))
}

// combineHashes orders the two child hashes byte-lexicographically before
// hashing, which makes sibling position irrelevant to verification.
func combineHashes(a []byte, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return hasher.Hash(a, b)
}

// DistributionTree is the committed form of a Distribution: the root to
// publish and one inclusion proof per account.
type DistributionTree struct {
	root   []byte
	proofs map[string][][]byte
}

func (t *DistributionTree) Root() []byte {
	return t.root
}

// Proof returns the inclusion proof for an account, or an error if the
// account is not part of the distribution.
func (t *DistributionTree) Proof(account string) ([][]byte, error) {
	proof, ok := t.proofs[utils.NormalizeAccount(account)]
	if !ok {
		return nil, fmt.Errorf("account %s is not in the distribution", account)
	}
	return proof, nil
}

// BuildTree commits the distribution, producing the root and all proofs in
// one bottom-up pass. A level with an odd node promotes the last hash
// unchanged to the next level.
func (d *Distribution) BuildTree() (*DistributionTree, error) {
	if d.Len() == 0 {
		return nil, errors.New("cannot build a tree for an empty distribution")
	}

	accounts := make([]string, 0, d.Len())
	level := make([][]byte, 0, d.Len())
	d.forEach(func(account string, amount string) {
		accounts = append(accounts, account)
		level = append(level, LeafHash(account, amount))
	})

	// proofIndex[i] tracks which node in the current level account i's leaf
	// has been folded into.
	proofs := make(map[string][][]byte, len(accounts))
	proofIndex := make([]int, len(accounts))
	for i, account := range accounts {
		proofs[account] = make([][]byte, 0)
		proofIndex[i] = i
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, combineHashes(level[i], level[i+1]))
		}

		for i, account := range accounts {
			pos := proofIndex[i]
			sibling := pos ^ 1
			if sibling < len(level) {
				proofs[account] = append(proofs[account], level[sibling])
			}
			proofIndex[i] = pos / 2
		}
		level = next
	}

	return &DistributionTree{
		root:   level[0],
		proofs: proofs,
	}, nil
}

// VerifyInclusion checks a proof for an (account, amount) row against a
// published root.
func VerifyInclusion(account string, amount string, proof [][]byte, root []byte) bool {
	if len(root) == 0 {
		return false
	}
	computed := LeafHash(account, amount)
	for _, sibling := range proof {
		computed = combineHashes(computed, sibling)
	}
	return bytes.Equal(computed, root)
}

package proofs

import (
	"fmt"

	"github.com/lumen-labs/yield-ledger/internal/types/numbers"
	"github.com/lumen-labs/yield-ledger/pkg/utils"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Distribution is the full (account, amount) payout table for one
// (epoch, asset) pair. Entries keep insertion order so the resulting tree is
// deterministic for a given table.
type Distribution struct {
	entries *orderedmap.OrderedMap[string, string]
}

func NewDistribution() *Distribution {
	return &Distribution{
		entries: orderedmap.New[string, string](),
	}
}

// SetEntry records the payout amount for an account. Duplicate accounts are
// rejected; a payout table has exactly one row per account.
func (d *Distribution) SetEntry(account string, amount string) error {
	account = utils.NormalizeAccount(account)
	if _, err := numbers.ParseAmount(amount); err != nil {
		return err
	}
	if _, found := d.entries.Get(account); found {
		return fmt.Errorf("duplicate account %s in distribution", account)
	}
	d.entries.Set(account, amount)
	return nil
}

func (d *Distribution) GetEntry(account string) (string, bool) {
	return d.entries.Get(utils.NormalizeAccount(account))
}

func (d *Distribution) Len() int {
	return d.entries.Len()
}

// forEach walks entries in insertion order.
func (d *Distribution) forEach(fn func(account string, amount string)) {
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Package transfer defines the opaque value-transfer capability the ledger
// services depend on. A transfer either fully succeeds or fully fails; the
// ledger never observes partial movement.
package transfer

import (
	"fmt"
	"sync"

	"github.com/lumen-labs/yield-ledger/internal/types/numbers"
	"github.com/lumen-labs/yield-ledger/pkg/utils"
)

// ValueTransfer moves fungible value between accounts. Amounts are decimal
// strings in the smallest denomination.
type ValueTransfer interface {
	Transfer(asset string, from string, to string, amount string) error
	BalanceOf(asset string, account string) (string, error)
}

// InMemoryBank is a ValueTransfer backed by an in-process balance table. It
// serves tests and local single-node runs.
type InMemoryBank struct {
	mu       sync.Mutex
	balances map[string]map[string]string
}

func NewInMemoryBank() *InMemoryBank {
	return &InMemoryBank{
		balances: make(map[string]map[string]string),
	}
}

func (b *InMemoryBank) assetBalances(asset string) map[string]string {
	asset = utils.NormalizeAccount(asset)
	if _, ok := b.balances[asset]; !ok {
		b.balances[asset] = make(map[string]string)
	}
	return b.balances[asset]
}

// Mint credits an account out of thin air. Test and bootstrap helper.
func (b *InMemoryBank) Mint(asset string, account string, amount string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	balances := b.assetBalances(asset)
	account = utils.NormalizeAccount(account)

	current, ok := balances[account]
	if !ok {
		current = "0"
	}
	updated, err := numbers.Add(current, amount)
	if err != nil {
		return err
	}
	balances[account] = updated
	return nil
}

func (b *InMemoryBank) Transfer(asset string, from string, to string, amount string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	balances := b.assetBalances(asset)
	from = utils.NormalizeAccount(from)
	to = utils.NormalizeAccount(to)

	fromBalance, ok := balances[from]
	if !ok {
		fromBalance = "0"
	}
	cmp, err := numbers.Cmp(fromBalance, amount)
	if err != nil {
		return err
	}
	if cmp < 0 {
		return fmt.Errorf("insufficient balance: account %s holds %s of %s, needs %s", from, fromBalance, asset, amount)
	}

	newFrom, err := numbers.Sub(fromBalance, amount)
	if err != nil {
		return err
	}
	toBalance, ok := balances[to]
	if !ok {
		toBalance = "0"
	}
	newTo, err := numbers.Add(toBalance, amount)
	if err != nil {
		return err
	}

	balances[from] = newFrom
	balances[to] = newTo
	return nil
}

func (b *InMemoryBank) BalanceOf(asset string, account string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	balances := b.assetBalances(asset)
	balance, ok := balances[utils.NormalizeAccount(account)]
	if !ok {
		return "0", nil
	}
	return balance, nil
}

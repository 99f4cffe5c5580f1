// Package registry exposes the read interfaces for the external boost and
// voting-power registries. The ledger only ever consumes these; ownership of
// the underlying data lives elsewhere.
package registry

import (
	"sync"

	"github.com/lumen-labs/yield-ledger/pkg/utils"
)

// BaseBoostMultiplierBps is the fixed-point base of a boost multiplier;
// 10000 means 1.0x.
const BaseBoostMultiplierBps = 10000

// BoostRegistry returns the current boost multiplier for an account.
type BoostRegistry interface {
	GetBoostMultiplier(account string) (uint64, error)
}

// VotingPowerRegistry returns the governance voting power snapshot for an
// account.
type VotingPowerRegistry interface {
	GetVotingPower(account string) (string, error)
}

// StaticRegistry is an in-process BoostRegistry and VotingPowerRegistry with
// fixed values, used by tests and local runs. Unknown accounts get the base
// 1.0x multiplier and zero voting power.
type StaticRegistry struct {
	mu          sync.Mutex
	multipliers map[string]uint64
	votingPower map[string]string
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		multipliers: make(map[string]uint64),
		votingPower: make(map[string]string),
	}
}

func (r *StaticRegistry) SetBoostMultiplier(account string, multiplierBps uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.multipliers[utils.NormalizeAccount(account)] = multiplierBps
}

func (r *StaticRegistry) SetVotingPower(account string, power string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votingPower[utils.NormalizeAccount(account)] = power
}

func (r *StaticRegistry) GetBoostMultiplier(account string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.multipliers[utils.NormalizeAccount(account)]; ok {
		return m, nil
	}
	return BaseBoostMultiplierBps, nil
}

func (r *StaticRegistry) GetVotingPower(account string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.votingPower[utils.NormalizeAccount(account)]; ok {
		return p, nil
	}
	return "0", nil
}

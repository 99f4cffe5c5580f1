// Package eventBusTypes defines the event names and payloads published by
// the ledger services. One event is emitted per committed state transition.
package eventBusTypes

import (
	"context"
	"sync"
)

type EventName string

func (en *EventName) String() string {
	return string(*en)
}

var (
	Event_Deposit             EventName = "deposit"
	Event_Withdraw            EventName = "withdraw"
	Event_InterestAccrued     EventName = "interest_accrued"
	Event_InterestClaimed     EventName = "interest_claimed"
	Event_Funded              EventName = "funded"
	Event_FundCoverageWarning EventName = "fund_coverage_warning"
	Event_RateUpdated         EventName = "rate_updated"
	Event_RateSmoothed        EventName = "rate_smoothed"
	Event_MerkleRootSet       EventName = "merkle_root_set"
	Event_RewardClaimed       EventName = "reward_claimed"
	Event_BoostApplied        EventName = "boost_applied"
	Event_EpochAdvanced       EventName = "epoch_advanced"
	Event_RewardsDistributed  EventName = "rewards_distributed"
)

type Event struct {
	Name EventName
	Data any
}

// AccountMutationData is the payload for deposit, withdraw, interest-accrued
// and interest-claimed events.
type AccountMutationData struct {
	Account string
	Amount  string
}

// FundCoverageWarningData carries the exact shortfall diagnostics so an
// operator can top up funding before the caller retries.
type FundCoverageWarningData struct {
	AvailableBalance string
	TotalObligations string
	Shortfall        string
}

// RateSmoothedData distinguishes the raw proposal from the applied rate when
// the smoothing cap clamps a proposal.
type RateSmoothedData struct {
	ProposedRateBps uint64
	AppliedRateBps  uint64
	WeekStartBps    uint64
}

type RateUpdatedData struct {
	OldRateBps uint64
	NewRateBps uint64
}

type MerkleRootSetData struct {
	Epoch        uint64
	Asset        string
	Root         string
	PreviousRoot string
}

type RewardClaimedData struct {
	Epoch      uint64
	Asset      string
	Account    string
	Amount     string
	PaidAmount string
}

type BoostAppliedData struct {
	Account            string
	BaseAmount         string
	BoostMultiplierBps uint64
	ActualAmount       string
}

type EpochAdvancedData struct {
	PreviousEpoch uint64
	CurrentEpoch  uint64
}

type RewardsDistributedData struct {
	Asset          string
	TotalAmount    string
	GaugeAmount    string
	RetainedAmount string
	GaugeWeightBps uint64
}

type ConsumerId string

type Consumer struct {
	Id      ConsumerId
	Context context.Context
	Channel chan *Event
}

// ConsumerList is a thread-safe collection of consumers.
type ConsumerList struct {
	mu        sync.Mutex
	consumers []*Consumer
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: make([]*Consumer, 0),
	}
}

func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers = append(cl.consumers, consumer)
}

func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for i, c := range cl.consumers {
		if c.Id == consumer.Id {
			cl.consumers = append(cl.consumers[:i], cl.consumers[i+1:]...)
			break
		}
	}
}

func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.consumers
}

type IEventBus interface {
	Subscribe(consumer *Consumer)
	Unsubscribe(consumer *Consumer)
	Publish(event *Event)
}

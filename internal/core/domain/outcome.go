package domain

import "fmt"

// Outcome describes how channel funds are distributed once the channel is
// finalized. It is one of SimpleAllocation, MixedAllocation or
// SimpleGuarantee.
type Outcome interface {
	isOutcome()
	Validate() error
}

func (o SimpleAllocation) isOutcome() {}
func (o MixedAllocation) isOutcome()  {}
func (o SimpleGuarantee) isOutcome()  {}

type AllocationItem struct {
	Destination string
	Amount      uint64
}

// SimpleAllocation is an ordered list of payouts against a single asset
// holder.
type SimpleAllocation struct {
	AssetHolder string
	Items       []AllocationItem
}

// MixedAllocation spreads allocations across multiple asset holders.
type MixedAllocation struct {
	Allocations []SimpleAllocation
}

// SimpleGuarantee redirects the payout priority of a target channel.
type SimpleGuarantee struct {
	AssetHolder     string
	TargetChannelID string
	Destinations    []string
}

func (o SimpleAllocation) Validate() error {
	if len(o.AssetHolder) <= 0 {
		return fmt.Errorf("missing asset holder")
	}
	if len(o.Items) <= 0 {
		return fmt.Errorf("missing allocation items")
	}
	for _, item := range o.Items {
		if len(item.Destination) != DestinationSize*2 {
			return fmt.Errorf("invalid allocation destination %s", item.Destination)
		}
	}
	return nil
}

func (o MixedAllocation) Validate() error {
	if len(o.Allocations) <= 0 {
		return fmt.Errorf("missing allocations")
	}
	for _, a := range o.Allocations {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (o SimpleGuarantee) Validate() error {
	if len(o.AssetHolder) <= 0 {
		return fmt.Errorf("missing asset holder")
	}
	if len(o.TargetChannelID) <= 0 {
		return fmt.Errorf("missing target channel id")
	}
	return nil
}

// Total returns the sum of all allocated amounts.
func (o SimpleAllocation) Total() uint64 {
	tot := uint64(0)
	for _, item := range o.Items {
		tot += item.Amount
	}
	return tot
}

// AmountFor returns the amount allocated to the given destination.
func (o SimpleAllocation) AmountFor(destination string) (uint64, bool) {
	for _, item := range o.Items {
		if item.Destination == destination {
			return item.Amount, true
		}
	}
	return 0, false
}

// IsAllocation reports whether the outcome carries allocations rather than a
// guarantee.
func IsAllocation(o Outcome) bool {
	switch o.(type) {
	case SimpleAllocation, MixedAllocation:
		return true
	default:
		return false
	}
}

// TotalAllocated returns the sum of amounts across all allocations of the
// outcome, zero for guarantees.
func TotalAllocated(o Outcome) uint64 {
	switch outcome := o.(type) {
	case SimpleAllocation:
		return outcome.Total()
	case MixedAllocation:
		tot := uint64(0)
		for _, a := range outcome.Allocations {
			tot += a.Total()
		}
		return tot
	default:
		return 0
	}
}

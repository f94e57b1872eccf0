package wallet

import (
	"errors"
	"fmt"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// ErrInsufficientFunds is returned by application rules when a proposed
// state would allocate more to a destination than the channel can cover, or
// would leave the mover unable to fund its next move.
var ErrInsufficientFunds = errors.New("insufficient funds for proposed state")

// AppRules validates application-level transitions between consecutive
// channel states. The machine has already checked the turn number and
// signature before rules run.
type AppRules interface {
	ValidTransition(from, to domain.State) error
}

// ConservationRules is the default rule set: the outcome total must be
// preserved across moves and no destination may be allocated more than the
// channel total.
type ConservationRules struct{}

func (ConservationRules) ValidTransition(from, to domain.State) error {
	fromTotal := domain.TotalAllocated(from.Outcome)
	toTotal := domain.TotalAllocated(to.Outcome)
	if toTotal > fromTotal {
		return ErrInsufficientFunds
	}
	if domain.IsAllocation(from.Outcome) && domain.IsAllocation(to.Outcome) && toTotal < fromTotal {
		return fmt.Errorf("outcome total changed from %d to %d", fromTotal, toTotal)
	}
	return nil
}

package application

import (
	"encoding/json"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/channelforge/forcemove/internal/core/domain"
)

// messageDigest derives the dedup key for an inbound message from its
// canonical JSON form.
func messageDigest(msg domain.Message) (string, error) {
	buf, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return chainhash.HashH(buf).String(), nil
}

// hubShare is the amount the outcome allocates to the hub's destination.
func hubShare(outcome domain.Outcome, destination string) (uint64, bool) {
	allocation, ok := outcome.(domain.SimpleAllocation)
	if !ok {
		return 0, false
	}
	return allocation.AmountFor(destination)
}

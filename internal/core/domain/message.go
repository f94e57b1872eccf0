package domain

import (
	"encoding/hex"
	"fmt"
)

// Objective types carried alongside signed states in wire messages.
const (
	OpenChannelObjective  = "OpenChannel"
	CloseChannelObjective = "CloseChannel"
	FundLedgerObjective   = "FundLedger"
	CloseLedgerObjective  = "CloseLedger"
)

// Message is the wire envelope exchanged through the transport.
type Message struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Data      Payload `json:"data"`
}

type Payload struct {
	SignedStates []SignedStateWire `json:"signedStates,omitempty"`
	Objectives   []Objective       `json:"objectives,omitempty"`
}

type Objective struct {
	Type         string            `json:"type"`
	Participants []ParticipantWire `json:"participants,omitempty"`
	Data         ObjectiveData     `json:"data"`
}

type ObjectiveData struct {
	TargetChannelID string `json:"targetChannelId,omitempty"`
	FundingStrategy string `json:"fundingStrategy,omitempty"`
	LedgerID        string `json:"ledgerId,omitempty"`
}

type ParticipantWire struct {
	ParticipantID  string `json:"participantId"`
	SigningAddress string `json:"signingAddress"`
	Destination    string `json:"destination"`
}

// SignedStateWire is the JSON form of a signed state. The channel id is
// derivable from the constants but included for fast dispatch.
type SignedStateWire struct {
	ChannelID         string             `json:"channelId"`
	ChainID           string             `json:"chainId"`
	ChannelNonce      uint64             `json:"channelNonce"`
	Participants      []ParticipantWire  `json:"participants"`
	AppDefinition     string             `json:"appDefinition"`
	ChallengeDuration uint32             `json:"challengeDuration"`
	Outcome           []OutcomeEntryWire `json:"outcome"`
	TurnNum           uint32             `json:"turnNum"`
	AppData           string             `json:"appData"`
	IsFinal           bool               `json:"isFinal"`
	Signatures        []string           `json:"signatures"`
}

// OutcomeEntryWire is one asset holder's slice of an outcome. Entries with a
// target channel id are guarantees, the rest are allocations. An outcome with
// more than one allocation entry deserializes to a MixedAllocation.
type OutcomeEntryWire struct {
	AssetHolder     string               `json:"assetHolder"`
	AllocationItems []AllocationItemWire `json:"allocationItems,omitempty"`
	TargetChannelID string               `json:"targetChannelId,omitempty"`
	Destinations    []string             `json:"destinations,omitempty"`
}

type AllocationItemWire struct {
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
}

// SerializeSignedState converts a signed state to its wire form.
func SerializeSignedState(ss SignedState) SignedStateWire {
	participants := make([]ParticipantWire, 0, len(ss.Participants))
	for _, p := range ss.Participants {
		participants = append(participants, ParticipantWire(p))
	}
	return SignedStateWire{
		ChannelID:         ss.ChannelID(),
		ChainID:           ss.ChainID,
		ChannelNonce:      ss.ChannelNonce,
		Participants:      participants,
		AppDefinition:     ss.AppDefinition,
		ChallengeDuration: ss.ChallengeDuration,
		Outcome:           serializeOutcome(ss.Outcome),
		TurnNum:           ss.TurnNum,
		AppData:           hex.EncodeToString(ss.AppData),
		IsFinal:           ss.IsFinal,
		Signatures:        ss.SignatureHexes(),
	}
}

// DeserializeSignedState rebuilds a signed state from its wire form,
// recovering each signature's signer. A channel id mismatching the derived
// one is rejected.
func DeserializeSignedState(wire SignedStateWire) (*SignedState, error) {
	participants := make([]Participant, 0, len(wire.Participants))
	for _, p := range wire.Participants {
		participants = append(participants, Participant(p))
	}
	outcome, err := deserializeOutcome(wire.Outcome)
	if err != nil {
		return nil, err
	}
	appData, err := hex.DecodeString(wire.AppData)
	if err != nil {
		return nil, fmt.Errorf("invalid app data hex: %s", err)
	}
	if len(appData) == 0 {
		appData = nil
	}
	state := State{
		ChannelConstants: ChannelConstants{
			ChainID:           wire.ChainID,
			ChannelNonce:      wire.ChannelNonce,
			Participants:      participants,
			AppDefinition:     wire.AppDefinition,
			ChallengeDuration: wire.ChallengeDuration,
		},
		StateVariables: StateVariables{
			Outcome: outcome,
			TurnNum: wire.TurnNum,
			AppData: appData,
			IsFinal: wire.IsFinal,
		},
	}
	if len(wire.ChannelID) > 0 && wire.ChannelID != state.ChannelID() {
		return nil, fmt.Errorf("channel id %s does not match constants", wire.ChannelID)
	}
	ss := NewSignedState(state)
	for _, sigHex := range wire.Signatures {
		entry, err := ParseSignature(state, sigHex)
		if err != nil {
			return nil, err
		}
		if err := ss.AddSignature(*entry); err != nil {
			return nil, err
		}
	}
	return &ss, nil
}

func serializeOutcome(outcome Outcome) []OutcomeEntryWire {
	switch o := outcome.(type) {
	case SimpleAllocation:
		return []OutcomeEntryWire{serializeAllocation(o)}
	case MixedAllocation:
		entries := make([]OutcomeEntryWire, 0, len(o.Allocations))
		for _, a := range o.Allocations {
			entries = append(entries, serializeAllocation(a))
		}
		return entries
	case SimpleGuarantee:
		return []OutcomeEntryWire{{
			AssetHolder:     o.AssetHolder,
			TargetChannelID: o.TargetChannelID,
			Destinations:    o.Destinations,
		}}
	default:
		return nil
	}
}

func serializeAllocation(a SimpleAllocation) OutcomeEntryWire {
	items := make([]AllocationItemWire, 0, len(a.Items))
	for _, item := range a.Items {
		items = append(items, AllocationItemWire(item))
	}
	return OutcomeEntryWire{AssetHolder: a.AssetHolder, AllocationItems: items}
}

func deserializeOutcome(entries []OutcomeEntryWire) (Outcome, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty outcome")
	}
	if len(entries[0].TargetChannelID) > 0 {
		if len(entries) != 1 {
			return nil, fmt.Errorf("guarantee outcomes must have exactly one entry")
		}
		return SimpleGuarantee{
			AssetHolder:     entries[0].AssetHolder,
			TargetChannelID: entries[0].TargetChannelID,
			Destinations:    entries[0].Destinations,
		}, nil
	}
	allocations := make([]SimpleAllocation, 0, len(entries))
	for _, entry := range entries {
		if len(entry.TargetChannelID) > 0 {
			return nil, fmt.Errorf("outcome mixes allocations and guarantees")
		}
		items := make([]AllocationItem, 0, len(entry.AllocationItems))
		for _, item := range entry.AllocationItems {
			items = append(items, AllocationItem(item))
		}
		allocations = append(allocations, SimpleAllocation{AssetHolder: entry.AssetHolder, Items: items})
	}
	if len(allocations) == 1 {
		return allocations[0], nil
	}
	return MixedAllocation{Allocations: allocations}, nil
}

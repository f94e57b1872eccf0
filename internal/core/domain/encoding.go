package domain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/channelforge/forcemove/pkg/bufferutil"
)

// ErrMalformedState is returned when decoding truncated or otherwise invalid
// state bytes. It signals a codec-level bug rather than a misbehaving peer.
var ErrMalformedState = errors.New("malformed state")

const (
	simpleAllocationTag = 0x01
	mixedAllocationTag  = 0x02
	simpleGuaranteeTag  = 0x03
)

// Encode serializes the state into its canonical binary form. The encoding
// round-trips exactly through DecodeState.
func (s State) Encode() ([]byte, error) {
	if s.Outcome == nil {
		return nil, fmt.Errorf("missing outcome")
	}
	buf := bufferutil.NewSerializer(nil)
	buf.WriteSlice(encodeConstants(s.ChannelConstants))
	if err := encodeOutcome(buf, s.Outcome); err != nil {
		return nil, err
	}
	buf.WriteUint32(s.TurnNum)
	buf.WriteVarSlice(s.AppData)
	buf.WriteBool(s.IsFinal)
	return buf.Bytes(), nil
}

// DecodeState parses the canonical binary form of a state.
func DecodeState(encoded []byte) (State, error) {
	d := bufferutil.NewDeserializer(bytes.NewBuffer(encoded))
	constants, err := decodeConstants(d)
	if err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrMalformedState, err)
	}
	outcome, err := decodeOutcome(d)
	if err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrMalformedState, err)
	}
	turnNum, err := d.ReadUint32()
	if err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrMalformedState, err)
	}
	appData, err := d.ReadVarSlice()
	if err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrMalformedState, err)
	}
	isFinal, err := d.ReadBool()
	if err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrMalformedState, err)
	}
	if d.Len() > 0 {
		return State{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedState, d.Len())
	}
	if len(appData) == 0 {
		appData = nil
	}
	return State{
		ChannelConstants: *constants,
		StateVariables: StateVariables{
			Outcome: outcome,
			TurnNum: turnNum,
			AppData: appData,
			IsFinal: isFinal,
		},
	}, nil
}

func encodeConstants(c ChannelConstants) []byte {
	buf := bufferutil.NewSerializer(nil)
	buf.WriteVarString(c.ChainID)
	buf.WriteUint64(c.ChannelNonce)
	buf.WriteVarInt(uint64(len(c.Participants)))
	for _, p := range c.Participants {
		buf.WriteVarString(p.ParticipantID)
		buf.WriteVarString(p.SigningAddress)
		buf.WriteVarString(p.Destination)
	}
	buf.WriteVarString(c.AppDefinition)
	buf.WriteUint32(c.ChallengeDuration)
	return buf.Bytes()
}

func decodeConstants(d *bufferutil.Deserializer) (*ChannelConstants, error) {
	chainID, err := d.ReadVarString()
	if err != nil {
		return nil, err
	}
	nonce, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	numParticipants, err := d.ReadVarInt()
	if err != nil {
		return nil, err
	}
	participants := make([]Participant, 0, numParticipants)
	for i := uint64(0); i < numParticipants; i++ {
		id, err := d.ReadVarString()
		if err != nil {
			return nil, err
		}
		signingAddress, err := d.ReadVarString()
		if err != nil {
			return nil, err
		}
		destination, err := d.ReadVarString()
		if err != nil {
			return nil, err
		}
		participants = append(participants, Participant{
			ParticipantID:  id,
			SigningAddress: signingAddress,
			Destination:    destination,
		})
	}
	appDefinition, err := d.ReadVarString()
	if err != nil {
		return nil, err
	}
	challengeDuration, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &ChannelConstants{
		ChainID:           chainID,
		ChannelNonce:      nonce,
		Participants:      participants,
		AppDefinition:     appDefinition,
		ChallengeDuration: challengeDuration,
	}, nil
}

func encodeOutcome(buf *bufferutil.Serializer, outcome Outcome) error {
	switch o := outcome.(type) {
	case SimpleAllocation:
		buf.WriteUint8(simpleAllocationTag)
		encodeAllocation(buf, o)
	case MixedAllocation:
		buf.WriteUint8(mixedAllocationTag)
		buf.WriteVarInt(uint64(len(o.Allocations)))
		for _, a := range o.Allocations {
			encodeAllocation(buf, a)
		}
	case SimpleGuarantee:
		buf.WriteUint8(simpleGuaranteeTag)
		buf.WriteVarString(o.AssetHolder)
		buf.WriteVarString(o.TargetChannelID)
		buf.WriteVarInt(uint64(len(o.Destinations)))
		for _, dest := range o.Destinations {
			buf.WriteVarString(dest)
		}
	default:
		return fmt.Errorf("unknown outcome type %T", outcome)
	}
	return nil
}

func encodeAllocation(buf *bufferutil.Serializer, a SimpleAllocation) {
	buf.WriteVarString(a.AssetHolder)
	buf.WriteVarInt(uint64(len(a.Items)))
	for _, item := range a.Items {
		buf.WriteVarString(item.Destination)
		buf.WriteUint64(item.Amount)
	}
}

func decodeOutcome(d *bufferutil.Deserializer) (Outcome, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case simpleAllocationTag:
		return decodeAllocation(d)
	case mixedAllocationTag:
		num, err := d.ReadVarInt()
		if err != nil {
			return nil, err
		}
		allocations := make([]SimpleAllocation, 0, num)
		for i := uint64(0); i < num; i++ {
			a, err := decodeAllocation(d)
			if err != nil {
				return nil, err
			}
			allocations = append(allocations, a)
		}
		return MixedAllocation{Allocations: allocations}, nil
	case simpleGuaranteeTag:
		assetHolder, err := d.ReadVarString()
		if err != nil {
			return nil, err
		}
		target, err := d.ReadVarString()
		if err != nil {
			return nil, err
		}
		num, err := d.ReadVarInt()
		if err != nil {
			return nil, err
		}
		destinations := make([]string, 0, num)
		for i := uint64(0); i < num; i++ {
			dest, err := d.ReadVarString()
			if err != nil {
				return nil, err
			}
			destinations = append(destinations, dest)
		}
		return SimpleGuarantee{
			AssetHolder:     assetHolder,
			TargetChannelID: target,
			Destinations:    destinations,
		}, nil
	default:
		return nil, fmt.Errorf("unknown outcome tag %d", tag)
	}
}

func decodeAllocation(d *bufferutil.Deserializer) (SimpleAllocation, error) {
	assetHolder, err := d.ReadVarString()
	if err != nil {
		return SimpleAllocation{}, err
	}
	num, err := d.ReadVarInt()
	if err != nil {
		return SimpleAllocation{}, err
	}
	items := make([]AllocationItem, 0, num)
	for i := uint64(0); i < num; i++ {
		destination, err := d.ReadVarString()
		if err != nil {
			return SimpleAllocation{}, err
		}
		amount, err := d.ReadUint64()
		if err != nil {
			return SimpleAllocation{}, err
		}
		items = append(items, AllocationItem{Destination: destination, Amount: amount})
	}
	return SimpleAllocation{AssetHolder: assetHolder, Items: items}, nil
}

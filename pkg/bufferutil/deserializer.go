package bufferutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Deserializer implements methods that help to deserialize the canonical
// binary form of channel states.
type Deserializer struct {
	buffer *bytes.Buffer
}

// NewDeserializer returns an instance of Deserializer.
func NewDeserializer(buffer *bytes.Buffer) *Deserializer {
	return &Deserializer{buffer}
}

// Len returns the number of bytes left in reader's buffer.
func (d *Deserializer) Len() int {
	return d.buffer.Len()
}

// ReadUint8 reads a uint8 value from reader's buffer.
func (d *Deserializer) ReadUint8() (uint8, error) {
	return d.buffer.ReadByte()
}

// ReadUint32 reads a uint32 value from reader's buffer.
func (d *Deserializer) ReadUint32() (uint32, error) {
	buf, err := d.ReadSlice(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadUint64 reads a uint64 value from reader's buffer.
func (d *Deserializer) ReadUint64() (uint64, error) {
	buf, err := d.ReadSlice(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// ReadBool reads a single byte from reader's buffer as a bool.
func (d *Deserializer) ReadBool() (bool, error) {
	val, err := d.ReadUint8()
	if err != nil {
		return false, err
	}
	if val > 1 {
		return false, fmt.Errorf("invalid bool byte %d", val)
	}
	return val == 1, nil
}

// ReadVarInt reads a variable length integer from reader's buffer and returns it as a uint64.
func (d *Deserializer) ReadVarInt() (uint64, error) {
	prefix, err := d.ReadUint8()
	if err != nil {
		return 0, err
	}
	switch prefix {
	case 0xfd:
		buf, err := d.ReadSlice(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.BigEndian.Uint16(buf)), nil
	case 0xfe:
		val, err := d.ReadUint32()
		return uint64(val), err
	case 0xff:
		return d.ReadUint64()
	default:
		return uint64(prefix), nil
	}
}

// ReadSlice reads the next n bytes from the reader's buffer
func (d *Deserializer) ReadSlice(n uint) ([]byte, error) {
	decoded := make([]byte, n)
	if _, err := io.ReadFull(d.buffer, decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// ReadVarSlice first reads the length n of the bytes, then reads the next n bytes
func (d *Deserializer) ReadVarSlice() ([]byte, error) {
	n, err := d.ReadVarInt()
	if err != nil {
		return nil, err
	}
	return d.ReadSlice(uint(n))
}

// ReadVarString reads a var slice from the reader's buffer and returns it as
// a string
func (d *Deserializer) ReadVarString() (string, error) {
	buf, err := d.ReadVarSlice()
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

package bufferutil

import (
	"bytes"
	"encoding/binary"
)

// Serializer implements methods that help to serialize channel states into
// their canonical binary form.
type Serializer struct {
	buffer *bytes.Buffer
}

// NewSerializer returns an instance of Serializer.
func NewSerializer(buf *bytes.Buffer) *Serializer {
	if buf == nil {
		buf = bytes.NewBuffer([]byte{})
	}
	return &Serializer{buf}
}

// Bytes returns writer's buffer
func (s *Serializer) Bytes() []byte {
	return s.buffer.Bytes()
}

// WriteUint8 writes the given uint8 value to writer's buffer.
func (s *Serializer) WriteUint8(val uint8) error {
	return s.buffer.WriteByte(val)
}

// WriteUint32 writes the given uint32 value to writer's buffer.
func (s *Serializer) WriteUint32(val uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], val)
	_, err := s.buffer.Write(buf[:])
	return err
}

// WriteUint64 writes the given uint64 value to writer's buffer.
func (s *Serializer) WriteUint64(val uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], val)
	_, err := s.buffer.Write(buf[:])
	return err
}

// WriteBool writes the given bool as a single byte to writer's buffer.
func (s *Serializer) WriteBool(val bool) error {
	if val {
		return s.WriteUint8(1)
	}
	return s.WriteUint8(0)
}

// WriteVarInt serializes the given value to writer's buffer
// using a variable number of bytes depending on its value.
func (s *Serializer) WriteVarInt(val uint64) error {
	switch {
	case val < 0xfd:
		return s.WriteUint8(uint8(val))
	case val <= 0xffff:
		if err := s.WriteUint8(0xfd); err != nil {
			return err
		}
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(val))
		_, err := s.buffer.Write(buf[:])
		return err
	case val <= 0xffffffff:
		if err := s.WriteUint8(0xfe); err != nil {
			return err
		}
		return s.WriteUint32(uint32(val))
	default:
		if err := s.WriteUint8(0xff); err != nil {
			return err
		}
		return s.WriteUint64(val)
	}
}

// WriteSlice appends the given byte array to the writer's buffer
func (s *Serializer) WriteSlice(val []byte) error {
	_, err := s.buffer.Write(val)
	return err
}

// WriteVarSlice appends the length of the given byte array as var int
// and the byte array itself to the writer's buffer
func (s *Serializer) WriteVarSlice(val []byte) error {
	if err := s.WriteVarInt(uint64(len(val))); err != nil {
		return err
	}
	return s.WriteSlice(val)
}

// WriteVarString appends the given string as a var slice to the writer's
// buffer
func (s *Serializer) WriteVarString(val string) error {
	return s.WriteVarSlice([]byte(val))
}

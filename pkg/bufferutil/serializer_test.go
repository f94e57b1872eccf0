package bufferutil

import (
	"bytes"
	"math"
	"reflect"
	"testing"
)

func TestSerializerAndDeserializer(t *testing.T) {
	t.Run("WriteReadUint8", testWriteReadUint8)
	t.Run("WriteReadUint32", testWriteReadUint32)
	t.Run("WriteReadUint64", testWriteReadUint64)
	t.Run("WriteReadBool", testWriteReadBool)
	t.Run("WriteReadVarInt", testWriteReadVarInt)
	t.Run("WriteReadVarSlice", testWriteReadVarSlice)
	t.Run("WriteReadVarString", testWriteReadVarString)
	t.Run("ReadTruncated", testReadTruncated)
}

func testWriteReadUint8(t *testing.T) {
	bw := NewSerializer(nil)

	in := []uint8{0, 1, 254, 255}
	for _, v := range in {
		if err := bw.WriteUint8(v); err != nil {
			t.Fatal(err)
		}
	}

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, expected := range in {
		res, err := br.ReadUint8()
		if err != nil {
			t.Fatal(err)
		}
		if res != expected {
			t.Fatalf("Got: %d, expected: %d", res, expected)
		}
	}
}

func testWriteReadUint32(t *testing.T) {
	bw := NewSerializer(nil)

	in := []uint32{0, 1, uint32(math.Pow(2, 16)), math.MaxUint32}
	for _, v := range in {
		if err := bw.WriteUint32(v); err != nil {
			t.Fatal(err)
		}
	}

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, expected := range in {
		res, err := br.ReadUint32()
		if err != nil {
			t.Fatal(err)
		}
		if res != expected {
			t.Fatalf("Got: %d, expected: %d", res, expected)
		}
	}
}

func testWriteReadUint64(t *testing.T) {
	bw := NewSerializer(nil)

	in := []uint64{0, 1, uint64(math.Pow(2, 32)), math.MaxUint64}
	for _, v := range in {
		if err := bw.WriteUint64(v); err != nil {
			t.Fatal(err)
		}
	}

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, expected := range in {
		res, err := br.ReadUint64()
		if err != nil {
			t.Fatal(err)
		}
		if res != expected {
			t.Fatalf("Got: %d, expected: %d", res, expected)
		}
	}
}

func testWriteReadBool(t *testing.T) {
	bw := NewSerializer(nil)

	in := []bool{true, false, true}
	for _, v := range in {
		if err := bw.WriteBool(v); err != nil {
			t.Fatal(err)
		}
	}

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, expected := range in {
		res, err := br.ReadBool()
		if err != nil {
			t.Fatal(err)
		}
		if res != expected {
			t.Fatalf("Got: %v, expected: %v", res, expected)
		}
	}

	bad := NewDeserializer(bytes.NewBuffer([]byte{0x02}))
	if _, err := bad.ReadBool(); err == nil {
		t.Fatal("expected error for invalid bool byte")
	}
}

func testWriteReadVarInt(t *testing.T) {
	bw := NewSerializer(nil)

	in := []uint64{
		0,
		1,
		252,
		253,
		255,
		256,
		uint64(math.Pow(2, 16) - 1),
		uint64(math.Pow(2, 16)),
		uint64(math.Pow(2, 32) - 1),
		uint64(math.Pow(2, 32)),
		math.MaxUint64,
	}
	for _, v := range in {
		if err := bw.WriteVarInt(v); err != nil {
			t.Fatal(err)
		}
	}

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, expected := range in {
		res, err := br.ReadVarInt()
		if err != nil {
			t.Fatal(err)
		}
		if res != expected {
			t.Fatalf("Got: %d, expected: %d", res, expected)
		}
	}
}

func testWriteReadVarSlice(t *testing.T) {
	bw := NewSerializer(nil)

	in := [][]byte{
		{0x01},
		filledSlice(252, 2),
		filledSlice(253, 3),
	}
	for _, v := range in {
		if err := bw.WriteVarSlice(v); err != nil {
			t.Fatal(err)
		}
	}

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, v := range in {
		res, err := br.ReadVarSlice()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(res, v) {
			t.Fatalf("Got: %b, expected: %b", res, v)
		}
	}
}

func testWriteReadVarString(t *testing.T) {
	bw := NewSerializer(nil)

	in := []string{"", "a", "forcemove-test"}
	for _, v := range in {
		if err := bw.WriteVarString(v); err != nil {
			t.Fatal(err)
		}
	}

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, expected := range in {
		res, err := br.ReadVarString()
		if err != nil {
			t.Fatal(err)
		}
		if res != expected {
			t.Fatalf("Got: %s, expected: %s", res, expected)
		}
	}
	if br.Len() != 0 {
		t.Fatalf("Got %d trailing bytes, expected none", br.Len())
	}
}

func testReadTruncated(t *testing.T) {
	bw := NewSerializer(nil)
	if err := bw.WriteVarSlice(filledSlice(10, 1)); err != nil {
		t.Fatal(err)
	}

	truncated := bw.Bytes()[:5]
	br := NewDeserializer(bytes.NewBuffer(truncated))
	if _, err := br.ReadVarSlice(); err == nil {
		t.Fatal("expected error reading truncated var slice")
	}

	br = NewDeserializer(bytes.NewBuffer([]byte{0x01}))
	if _, err := br.ReadUint32(); err == nil {
		t.Fatal("expected error reading truncated uint32")
	}
}

func filledSlice(n int, val uint8) []byte {
	v := make([]byte, n)
	for i := range v {
		v[i] = val
	}
	return v
}

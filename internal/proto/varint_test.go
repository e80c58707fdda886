package proto

import (
	"bufio"
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []int32{0, 1, 127, 128, 255, 300, 2097151, 2097152, 25565, 767, -1, -2147483648, 2147483647}

	for _, v := range cases {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, v); err != nil {
			t.Fatalf("WriteVarInt(%d): %v", v, err)
		}

		if got := VarIntSize(v); got != buf.Len() {
			t.Errorf("VarIntSize(%d) = %d, want %d", v, got, buf.Len())
		}

		n, got, err := ReadVarInt(bufio.NewReader(bytes.NewReader(buf.Bytes())))
		if err != nil {
			t.Fatalf("ReadVarInt(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("ReadVarInt round-trip = %d, want %d", got, v)
		}
		if n != buf.Len() {
			t.Errorf("ReadVarInt consumed %d bytes, want %d", n, buf.Len())
		}
	}
}

func TestReadVarIntMultiByte(t *testing.T) {
	// 300 encodes as two bytes: 0xAC 0x02. A regression here catches the
	// double-increment bug where the second byte was shifted by 14 bits
	// instead of 7.
	r := bufio.NewReader(bytes.NewReader([]byte{0xAC, 0x02}))
	n, v, err := ReadVarInt(r)
	if err != nil {
		t.Fatalf("ReadVarInt: %v", err)
	}
	if n != 2 {
		t.Errorf("consumed = %d, want 2", n)
	}
	if v != 300 {
		t.Errorf("value = %d, want 300", v)
	}
}

func TestReadVarIntTooBig(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	_, _, err := ReadVarInt(bufio.NewReader(bytes.NewReader(buf)))
	if err != ErrVarIntTooBig {
		t.Errorf("err = %v, want ErrVarIntTooBig", err)
	}
}

func TestAppendVarIntMatchesWriteVarInt(t *testing.T) {
	for _, v := range []int32{0, 1, 127, 128, 16384, -1} {
		var buf bytes.Buffer
		WriteVarInt(&buf, v)
		got := AppendVarInt(nil, v)
		if !bytes.Equal(got, buf.Bytes()) {
			t.Errorf("AppendVarInt(%d) = %x, want %x", v, got, buf.Bytes())
		}
	}
}

package proto

import (
	"bufio"
	"bytes"
	"testing"
)

func TestEncodeDecodeRawPacketUncompressed(t *testing.T) {
	comp := ClientCompression{Threshold: -1}
	p := RawPacket{ID: 0x05, Data: []byte("hello world")}

	frame, err := EncodeRawPacket(p, comp)
	if err != nil {
		t.Fatalf("EncodeRawPacket: %v", err)
	}

	r := bufio.NewReader(bytes.NewReader(frame))
	got, raw, err := ReadPacket(r, comp)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if got.ID != p.ID || !bytes.Equal(got.Data, p.Data) {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if !bytes.Equal(WrapFrame(raw), frame) {
		t.Errorf("WrapFrame(raw frame) did not reproduce the original frame")
	}
}

func TestEncodeDecodeRawPacketCompressedBelowThreshold(t *testing.T) {
	comp := ClientCompression{Threshold: 256}
	p := RawPacket{ID: 0x01, Data: []byte("small")}

	frame, err := EncodeRawPacket(p, comp)
	if err != nil {
		t.Fatalf("EncodeRawPacket: %v", err)
	}

	r := bufio.NewReader(bytes.NewReader(frame))
	got, _, err := ReadPacket(r, comp)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if got.ID != p.ID || !bytes.Equal(got.Data, p.Data) {
		t.Errorf("got %+v, want %+v", got, p)
	}
}

func TestEncodeDecodeRawPacketCompressedAboveThreshold(t *testing.T) {
	comp := ClientCompression{Threshold: 8}
	p := RawPacket{ID: 0x02, Data: bytes.Repeat([]byte("x"), 4096)}

	frame, err := EncodeRawPacket(p, comp)
	if err != nil {
		t.Fatalf("EncodeRawPacket: %v", err)
	}
	if len(frame) >= len(p.Data) {
		t.Errorf("expected compression to shrink a 4096-byte run of 'x', got frame len %d", len(frame))
	}

	r := bufio.NewReader(bytes.NewReader(frame))
	got, _, err := ReadPacket(r, comp)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if got.ID != p.ID || !bytes.Equal(got.Data, p.Data) {
		t.Errorf("payload mismatch after compressed round-trip")
	}
}

func TestWrapFrameThenReadPacket(t *testing.T) {
	comp := ClientCompression{Threshold: -1}
	p := RawPacket{ID: 0x00, Data: []byte{1, 2, 3}}

	original, err := EncodeRawPacket(p, comp)
	if err != nil {
		t.Fatalf("EncodeRawPacket: %v", err)
	}

	r := bufio.NewReader(bytes.NewReader(original))
	_, raw, err := ReadPacket(r, comp)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}

	rewrapped := WrapFrame(raw)
	r2 := bufio.NewReader(bytes.NewReader(rewrapped))
	got, _, err := ReadPacket(r2, comp)
	if err != nil {
		t.Fatalf("ReadPacket after WrapFrame: %v", err)
	}
	if got.ID != p.ID || !bytes.Equal(got.Data, p.Data) {
		t.Errorf("got %+v, want %+v", got, p)
	}
}

func TestDecodeInlineEncodeInlineRoundTrip(t *testing.T) {
	p := RawPacket{ID: 0x01, Data: []byte("forge handshake payload")}
	b := EncodeInline(p)

	got, err := DecodeInline(b)
	if err != nil {
		t.Fatalf("DecodeInline: %v", err)
	}
	if got.ID != p.ID || !bytes.Equal(got.Data, p.Data) {
		t.Errorf("got %+v, want %+v", got, p)
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader(nil))
	_, err := ReadFrame(r)
	if err == nil {
		t.Fatal("expected an error reading from an empty stream")
	}
}

package forge

import (
	"bytes"
	"testing"

	"github.com/lazymc-go/lazymc/internal/proto"
)

func TestEncodeDecodeWrapperRoundTrip(t *testing.T) {
	w := Wrapper{
		Channel: HandshakeChannel,
		Packet:  proto.RawPacket{ID: SubModList, Data: []byte("mod list payload")},
	}

	encoded := EncodeWrapper(w)
	got, err := DecodeWrapper(encoded)
	if err != nil {
		t.Fatalf("DecodeWrapper: %v", err)
	}
	if got.Channel != w.Channel {
		t.Errorf("Channel = %q, want %q", got.Channel, w.Channel)
	}
	if got.Packet.ID != w.Packet.ID || !bytes.Equal(got.Packet.Data, w.Packet.Data) {
		t.Errorf("Packet = %+v, want %+v", got.Packet, w.Packet)
	}
}

func TestBuildReplyEchoesModList(t *testing.T) {
	in := Wrapper{
		Channel: HandshakeChannel,
		Packet:  proto.RawPacket{ID: SubModList, Data: []byte("mods")},
	}

	reply := BuildReply(in)
	got, err := DecodeWrapper(reply)
	if err != nil {
		t.Fatalf("DecodeWrapper: %v", err)
	}
	if got.Channel != HandshakeChannel || got.Packet.ID != SubModList || !bytes.Equal(got.Packet.Data, []byte("mods")) {
		t.Errorf("reply = %+v, want an echoed ModList", got)
	}
}

func TestBuildReplyAcknowledgesOtherPackets(t *testing.T) {
	in := Wrapper{
		Channel: HandshakeChannel,
		Packet:  proto.RawPacket{ID: SubServerHello, Data: []byte("hello")},
	}

	reply := BuildReply(in)
	got, err := DecodeWrapper(reply)
	if err != nil {
		t.Fatalf("DecodeWrapper: %v", err)
	}
	if got.Packet.ID != SubAcknowledgement {
		t.Errorf("reply packet id = %d, want SubAcknowledgement", got.Packet.ID)
	}
	if len(got.Packet.Data) != 0 {
		t.Errorf("acknowledgement should carry no data, got %v", got.Packet.Data)
	}
}

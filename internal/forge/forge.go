// Package forge implements the small slice of the Forge mod-loader
// login-wrapper sub-protocol lazymc needs to speak: decoding the
// fml:loginwrapper envelope and replying with either an empty
// acknowledgement or an echoed mod-list reply (spec.md §4.8).
package forge

import (
	"fmt"

	"github.com/lazymc-go/lazymc/internal/proto"
)

// StatusMagic is appended to the handshake's server-address field to
// tell a Forge server the client supports its handshake (spec.md §4.5).
const StatusMagic = "\x00FML2\x00"

// LoginWrapperChannel is the vanilla LOGIN_PLUGIN_REQUEST channel Forge
// tunnels its own handshake packets through.
const LoginWrapperChannel = "fml:loginwrapper"

// HandshakeChannel is the Forge sub-channel carried inside the wrapper.
const HandshakeChannel = "fml:handshake"

// Forge FML2 handshake sub-packet ids (see vanilla Forge networking).
const (
	SubServerHello    int32 = 0
	SubClientHello    int32 = 1
	SubModList        int32 = 2
	SubRegistryData   int32 = 3
	SubConfigData     int32 = 4
	SubAcknowledgement int32 = 99
)

// Wrapper is a decoded fml:loginwrapper payload: the Forge sub-channel
// name and the inner packet it carries.
type Wrapper struct {
	Channel string
	Packet  proto.RawPacket
}

// DecodeWrapper parses a LOGIN_PLUGIN_REQUEST's data field as a
// fml:loginwrapper envelope: a string channel name followed by the
// wrapped packet encoded with no outer length prefix (the wrapped
// packet's own varint id + data is all that follows).
func DecodeWrapper(data []byte) (Wrapper, error) {
	r := proto.NewReader(data)
	channel := r.String()
	rest := r.Rest()
	if err := r.Err(); err != nil {
		return Wrapper{}, fmt.Errorf("forge: decode login wrapper: %w", err)
	}
	inner, err := proto.DecodeInline(rest)
	if err != nil {
		return Wrapper{}, fmt.Errorf("forge: decode wrapped packet: %w", err)
	}
	return Wrapper{Channel: channel, Packet: inner}, nil
}

// EncodeWrapper is the inverse of DecodeWrapper.
func EncodeWrapper(w Wrapper) []byte {
	b := proto.NewBuilder()
	b.String(w.Channel)
	b.RawBytes(proto.EncodeInline(w.Packet))
	return b.Bytes()
}

// BuildReply decides how to answer an incoming LOGIN_PLUGIN_REQUEST
// whose data is a fml:loginwrapper envelope: for ModList on the
// handshake channel, echo it back verbatim (its own "reply" form is
// identical contents per the original lazymc and vanilla Forge); for
// anything else, reply with an empty Acknowledgement on the same
// sub-channel.
func BuildReply(in Wrapper) []byte {
	if in.Channel == HandshakeChannel && in.Packet.ID == SubModList {
		return EncodeWrapper(Wrapper{
			Channel: HandshakeChannel,
			Packet:  proto.RawPacket{ID: SubModList, Data: in.Packet.Data},
		})
	}
	return EncodeWrapper(Wrapper{
		Channel: in.Channel,
		Packet:  proto.RawPacket{ID: SubAcknowledgement},
	})
}

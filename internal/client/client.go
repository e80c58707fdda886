// Package client holds the per-connection mutable record lazymc threads
// through the handshake/status/login pipeline.
package client

import (
	"net"

	"github.com/lazymc-go/lazymc/internal/proto"
	"github.com/lazymc-go/lazymc/internal/proto/packet"
)

// Context is a single client connection's state: its remote address
// (immutable for the connection's lifetime), its protocol state (set
// only by the goroutine that owns the connection) and its negotiated
// compression threshold.
type Context struct {
	RemoteAddr net.Addr
	Protocol   packet.Protocol

	state       proto.ClientState
	compression proto.ClientCompression
}

// New returns a Context in the initial Handshake state with compression
// disabled (threshold < 0).
func New(remote net.Addr) *Context {
	return &Context{
		RemoteAddr:  remote,
		compression: proto.ClientCompression{Threshold: -1},
	}
}

func (c *Context) State() proto.ClientState { return c.state }

// SetState advances the connection's state. Only the owning goroutine
// may call this; no transition ever moves backward.
func (c *Context) SetState(s proto.ClientState) { c.state = s }

func (c *Context) Compression() proto.ClientCompression { return c.compression }

func (c *Context) SetCompressionThreshold(threshold int) {
	c.compression = proto.ClientCompression{Threshold: threshold}
}

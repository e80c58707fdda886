package mc

import (
	"context"
	"errors"
)

// RconClient is the external interface to a remote-console client, used
// only to issue a graceful "stop" (spec.md §4.2, §6). The real Source
// RCON wire protocol is out of scope for this module — see DESIGN.md for
// why no implementation lives here. NoopRconClient below always reports
// itself unavailable so the supervisor falls back to a process signal.
type RconClient interface {
	// Stop asks the server to shut down gracefully over RCON. A short
	// grace delay before and after the connection is the caller's
	// responsibility, to work around server quirks (spec.md §6).
	Stop(ctx context.Context) error
}

// ErrRconDisabled is returned by NoopRconClient, and by any caller that
// checks rcon.enabled before attempting a connection.
var ErrRconDisabled = errors.New("mc: rcon is not enabled")

// NoopRconClient is the RCON client every server.Controller is built
// with, whatever rcon.enabled says; rcon.enabled=false is the default
// (spec.md §6).
type NoopRconClient struct{}

func (NoopRconClient) Stop(context.Context) error { return ErrRconDisabled }

// NBTTag stands in for a real NBT/SNBT codec, which is out of scope
// here. JoinGameData's dimension-codec/dimension fields are carried as
// already-encoded blobs captured verbatim from the probe and are never
// decoded or re-encoded by this module.
type NBTTag = []byte

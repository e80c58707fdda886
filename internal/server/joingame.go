package server

import (
	"fmt"

	"github.com/lazymc-go/lazymc/internal/proto"
)

// Default values used when a field wasn't present on the probed
// JOIN_GAME, or no probe has run yet — spec.md §4.2 "all optional;
// defaults supplied when absent".
var DefaultJoinGameData = JoinGameData{
	DimensionName:    "minecraft:overworld",
	WorldNames:       []string{"minecraft:overworld"},
	HashedSeed:       0,
	GameMode:         3, // spectator
	PreviousGameMode: -1,
	MaxPlayers:       20,
	ViewDistance:     10,
}

// ParseJoinGame decodes a server's JOIN_GAME packet into JoinGameData.
// Field layout is version-sensitive (spec.md §9 "version pinning of
// JoinGame/Respawn"); only the >= 1.20.2 (protocol 764) layout this
// proxy targets by default is parsed in full. Older protocols get
// DefaultJoinGameData as is, without decoding data, since lazymc only
// needs these fields to forge a credible RESPAWN, not to relay the
// packet untouched.
func ParseJoinGame(protocol int32, data []byte) (JoinGameData, error) {
	if protocol < 764 {
		return DefaultJoinGameData, nil
	}

	r := proto.NewReader(data)
	var jg JoinGameData

	_ = r.Int() // entity_id, unused: lazymc always re-picks entity_id=0 for the lobby
	jg.Hardcore = r.Bool()

	count := int(r.VarInt())
	jg.WorldNames = make([]string, 0, count)
	for i := 0; i < count; i++ {
		jg.WorldNames = append(jg.WorldNames, r.String())
	}

	jg.MaxPlayers = r.VarInt()
	jg.ViewDistance = r.VarInt()
	_ = r.VarInt() // simulation_distance, not tracked
	jg.ReducedDebugInfo = r.Bool()
	jg.EnableRespawnScreen = r.Bool()
	_ = r.Bool() // do_limited_crafting, not tracked

	jg.DimensionName = r.String()
	jg.HashedSeed = r.Long()
	jg.GameMode = r.Byte()
	jg.PreviousGameMode = int8(r.Byte())
	jg.IsDebug = r.Bool()
	jg.IsFlat = r.Bool()

	if err := r.Err(); err != nil {
		return DefaultJoinGameData, fmt.Errorf("server: parse join game: %w", err)
	}
	return jg, nil
}

// minimalDimensionCodecNBT and minimalDimensionNBT are the smallest legal
// NBT blobs (TAG_Compound, zero-length name, immediate TAG_End), used on
// pre-1.20.2 connections when no probed codec was captured. Real dimension
// and biome data from jg.DimensionCodecNBT/jg.DimensionNBT is preferred
// whenever a probe captured it.
var (
	minimalDimensionCodecNBT = []byte{0x0A, 0x00, 0x00, 0x00}
	minimalDimensionNBT      = []byte{0x0A, 0x00, 0x00, 0x00}
)

func dimensionCodecOrDefault(jg JoinGameData) []byte {
	if len(jg.DimensionCodecNBT) > 0 {
		return jg.DimensionCodecNBT
	}
	return minimalDimensionCodecNBT
}

func dimensionOrDefault(jg JoinGameData) []byte {
	if len(jg.DimensionNBT) > 0 {
		return jg.DimensionNBT
	}
	return minimalDimensionNBT
}

// BuildJoinGame encodes a synthetic JOIN_GAME for the lobby occupation
// method, using jg as the source of truth and filling anything it
// leaves zero-valued with DefaultJoinGameData. Layout forks on the same
// protocol 764 cutoff as ParseJoinGame: below it, dimension data is
// still carried inline as NBT and there's no simulation_distance or
// do_limited_crafting field.
func BuildJoinGame(protocol int32, jg JoinGameData) []byte {
	jg = mergeDefaults(jg)

	if protocol < 764 {
		return buildJoinGamePre764(jg)
	}

	b := proto.NewBuilder()
	b.Int(0) // entity_id: lobby client is always entity 0
	b.Bool(jg.Hardcore)

	b.VarInt(int32(len(jg.WorldNames)))
	for _, w := range jg.WorldNames {
		b.String(w)
	}

	b.VarInt(jg.MaxPlayers)
	b.VarInt(jg.ViewDistance)
	b.VarInt(jg.ViewDistance) // simulation_distance mirrors view_distance
	b.Bool(jg.ReducedDebugInfo)
	b.Bool(jg.EnableRespawnScreen)
	b.Bool(false) // do_limited_crafting

	b.String(jg.DimensionName)
	b.Long(jg.HashedSeed)
	b.Byte(jg.GameMode)
	b.Byte(byte(jg.PreviousGameMode))
	b.Bool(jg.IsDebug)
	b.Bool(jg.IsFlat)

	return b.Bytes()
}

// buildJoinGamePre764 encodes the pre-1.20.2 JOIN_GAME layout: gamemode
// fields come right after hardcore (no trailing byte block), dimension
// codec and dimension are inline NBT compounds, world_name is a plain
// string rather than a bare dimension identifier, and max_players/
// view_distance are still part of the same field order but with no
// simulation_distance following.
func buildJoinGamePre764(jg JoinGameData) []byte {
	b := proto.NewBuilder()
	b.Int(0) // entity_id
	b.Bool(jg.Hardcore)
	b.Byte(jg.GameMode)
	b.Byte(byte(jg.PreviousGameMode))

	b.VarInt(int32(len(jg.WorldNames)))
	for _, w := range jg.WorldNames {
		b.String(w)
	}

	b.RawBytes(dimensionCodecOrDefault(jg))
	b.RawBytes(dimensionOrDefault(jg))
	b.String(jg.DimensionName) // world_name
	b.Long(jg.HashedSeed)
	b.VarInt(jg.MaxPlayers)
	b.VarInt(jg.ViewDistance)
	b.Bool(jg.ReducedDebugInfo)
	b.Bool(jg.EnableRespawnScreen)
	b.Bool(jg.IsDebug)
	b.Bool(jg.IsFlat)

	return b.Bytes()
}

// BuildRespawn encodes a RESPAWN that hands a held client from the
// synthetic lobby dimension back into jg's real dimension, with
// copy_metadata = false as spec.md §4.8 step 6 requires. Forks on the
// same protocol 764 cutoff as BuildJoinGame: below it, dimension is an
// inline NBT compound rather than a bare dimension identifier.
func BuildRespawn(protocol int32, jg JoinGameData) []byte {
	jg = mergeDefaults(jg)

	if protocol < 764 {
		return buildRespawnPre764(jg)
	}

	b := proto.NewBuilder()
	b.String(jg.DimensionName)
	b.Long(jg.HashedSeed)
	b.Byte(jg.GameMode)
	b.Byte(byte(jg.PreviousGameMode))
	b.Bool(jg.IsDebug)
	b.Bool(jg.IsFlat)
	b.Bool(false) // copy_metadata

	return b.Bytes()
}

func buildRespawnPre764(jg JoinGameData) []byte {
	b := proto.NewBuilder()
	b.RawBytes(dimensionOrDefault(jg))
	b.String(jg.DimensionName) // world_name
	b.Long(jg.HashedSeed)
	b.Byte(jg.GameMode)
	b.Byte(byte(jg.PreviousGameMode))
	b.Bool(jg.IsDebug)
	b.Bool(jg.IsFlat)
	b.Bool(false) // copy_metadata

	return b.Bytes()
}

func mergeDefaults(jg JoinGameData) JoinGameData {
	d := DefaultJoinGameData
	if jg.DimensionName != "" {
		d.DimensionName = jg.DimensionName
	}
	if len(jg.WorldNames) > 0 {
		d.WorldNames = jg.WorldNames
	}
	if jg.MaxPlayers > 0 {
		d.MaxPlayers = jg.MaxPlayers
	}
	if jg.ViewDistance > 0 {
		d.ViewDistance = jg.ViewDistance
	}
	d.HashedSeed = jg.HashedSeed
	d.GameMode = jg.GameMode
	d.PreviousGameMode = jg.PreviousGameMode
	d.Hardcore = jg.Hardcore
	d.ReducedDebugInfo = jg.ReducedDebugInfo
	d.EnableRespawnScreen = jg.EnableRespawnScreen
	d.IsDebug = jg.IsDebug
	d.IsFlat = jg.IsFlat
	return d
}

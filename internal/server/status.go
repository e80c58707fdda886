package server

// StatusSnapshot is the most recent server-reported version, MOTD and
// player counts, cached for synthesizing status responses when the
// backing server itself is asleep.
type StatusSnapshot struct {
	VersionName     string
	VersionProtocol int32
	MOTD            string
	PlayersOnline   int
	PlayersMax      int
	Favicon         string // already base64-encoded data URI, if any
}

// JoinGameData is the union of fields lazymc may need to forge a
// credible RESPAWN after a lobby hold, captured from the real server's
// first JOIN_GAME packet during a probe. All fields are optional —
// emitters fall back to embedded defaults for anything unset.
type JoinGameData struct {
	DimensionName      string
	DimensionCodecNBT  []byte // opaque NBT blob, see internal/mc.NBTTag
	DimensionNBT       []byte
	WorldNames         []string
	HashedSeed         int64
	GameMode           byte
	PreviousGameMode   int8
	Hardcore           bool
	MaxPlayers         int32
	ViewDistance       int32
	ReducedDebugInfo   bool
	EnableRespawnScreen bool
	IsDebug            bool
	IsFlat             bool
}

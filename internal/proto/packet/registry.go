// Package packet names the symbolic Minecraft packets lazymc cares about
// and maps them to wire ids per protocol version. Only the handful of
// packets the proxy actually hijacks or synthesizes are named here — it
// is not a general protocol codec.
package packet

// Name identifies a packet independent of its wire id, which changes
// across protocol versions.
type Name string

const (
	Handshake          Name = "HANDSHAKE"
	StatusRequest      Name = "STATUS_REQUEST"
	StatusResponse     Name = "STATUS_RESPONSE"
	Ping               Name = "PING"
	Pong               Name = "PONG"
	LoginStart         Name = "LOGIN_START"
	LoginSuccess       Name = "LOGIN_SUCCESS"
	LoginDisconnect    Name = "LOGIN_DISCONNECT"
	SetCompression     Name = "SET_COMPRESSION"
	LoginPluginRequest Name = "LOGIN_PLUGIN_REQUEST"
	LoginPluginResp    Name = "LOGIN_PLUGIN_RESPONSE"
	JoinGame           Name = "JOIN_GAME"
	KeepAlive          Name = "KEEP_ALIVE"
	Respawn            Name = "RESPAWN"
	PlayerPosLook      Name = "PLAYER_POS_LOOK"
	PluginMessage      Name = "PLUGIN_MESSAGE"
	NamedSoundEffect   Name = "NAMED_SOUND_EFFECT"
	TimeUpdate         Name = "TIME_UPDATE"
	TitleText          Name = "TITLE_TEXT"
	TitleSubtitle      Name = "TITLE_SUBTITLE"
	TitleClear         Name = "TITLE_CLEAR"
	Disconnect         Name = "DISCONNECT"
)

// Protocol is a Minecraft protocol version number (the handshake's
// protocol_version field / the status response's version.protocol).
type Protocol int32

// Direction distinguishes the serverbound and clientbound id tables —
// the same Name can have different ids in each direction and state.
type Direction int

const (
	Serverbound Direction = iota
	Clientbound
)

// idRange maps a Name to a wire id for protocol versions >= Since.
type idRange struct {
	Since Protocol
	ID    int32
}

// table is the asymmetric, append-only history of id changes for a
// packet across the protocol epochs lazymc needs to emit or parse.
// Entries are ordered oldest-first; ID looks up the id active for the
// highest Since <= the requested protocol.
type table map[Name][]idRange

var serverboundIDs = table{
	Handshake:     {{0, 0x00}},
	StatusRequest: {{0, 0x00}},
	Ping:          {{0, 0x01}},
	LoginStart:    {{0, 0x00}},
	LoginPluginResp: {{0, 0x02}},
}

var clientboundLoginIDs = table{
	LoginDisconnect:    {{0, 0x00}},
	LoginSuccess:       {{0, 0x02}},
	SetCompression:     {{0, 0x03}},
	LoginPluginRequest: {{0, 0x04}},
}

var clientboundStatusIDs = table{
	StatusResponse: {{0, 0x00}},
	Pong:           {{0, 0x01}},
}

// clientboundPlayIDs covers the play-state packets lazymc synthesizes.
// Protocol epochs follow the original lazymc's fork points: 1.7-1.8
// (47), the 1.9-1.12 batch (>=107), 1.13+ (>=393), 1.14+ (>=477),
// 1.15/1.16 (>=573/735), 1.17+ (>=755), 1.19+ (>=759), 1.19.3+ (>=761),
// 1.20.2+ (>=764). Each id lists its own thresholds; some entries
// repeat the previous epoch's id. Lookups pick the last threshold at
// or below the protocol.
var clientboundPlayIDs = table{
	JoinGame: {
		{0, 0x01}, {107, 0x23}, {393, 0x25}, {477, 0x26}, {573, 0x25},
		{735, 0x26}, {755, 0x24}, {759, 0x23}, {761, 0x24}, {764, 0x28},
	},
	KeepAlive: {
		{0, 0x00}, {107, 0x1F}, {393, 0x21}, {477, 0x21}, {573, 0x20},
		{735, 0x21}, {755, 0x1F}, {759, 0x1E}, {761, 0x1F}, {764, 0x23},
	},
	Respawn: {
		{0, 0x07}, {107, 0x33}, {393, 0x35}, {477, 0x38}, {573, 0x39},
		{735, 0x3A}, {755, 0x39}, {759, 0x3D}, {761, 0x3E}, {764, 0x41},
	},
	PlayerPosLook: {
		{0, 0x08}, {107, 0x2E}, {393, 0x32}, {477, 0x34}, {573, 0x35},
		{735, 0x36}, {755, 0x34}, {759, 0x38}, {761, 0x39}, {764, 0x3C},
	},
	PluginMessage: {
		{0, 0x3F}, {107, 0x18}, {393, 0x19}, {477, 0x18}, {573, 0x17},
		{735, 0x18}, {755, 0x17}, {759, 0x16}, {761, 0x15}, {764, 0x17},
	},
	NamedSoundEffect: {
		{0, 0x29}, {107, 0x19}, {393, 0x1A}, {477, 0x19}, {573, 0x18},
		{735, 0x19}, {755, 0x18}, {759, 0x17}, {761, 0x16}, {764, 0x18},
	},
	TimeUpdate: {
		{0, 0x03}, {107, 0x44}, {393, 0x4E}, {477, 0x4E}, {573, 0x4E},
		{735, 0x4E}, {755, 0x58}, {759, 0x59}, {761, 0x5A}, {764, 0x60},
	},
	TitleText: {
		{389, 0x4B}, {477, 0x4B}, {573, 0x4F}, {735, 0x50}, {755, 0x5A},
		{759, 0x5B}, {761, 0x5C}, {764, 0x62},
	},
	TitleSubtitle: {
		{389, 0x49}, {477, 0x49}, {573, 0x4D}, {735, 0x4E}, {755, 0x58},
		{759, 0x59}, {761, 0x5A}, {764, 0x60},
	},
	TitleClear: {
		{389, 0x4A}, {477, 0x4A}, {573, 0x4E}, {735, 0x4F}, {755, 0x59},
		{759, 0x5A}, {761, 0x5B}, {764, 0x61},
	},
	Disconnect: {
		{0, 0x40}, {107, 0x1A}, {393, 0x1B}, {477, 0x1A}, {573, 0x19},
		{735, 0x1A}, {755, 0x19}, {759, 0x17}, {761, 0x17}, {764, 0x19},
	},
}

func lookup(t table, name Name, protocol Protocol) (int32, bool) {
	ranges, ok := t[name]
	if !ok || len(ranges) == 0 {
		return 0, false
	}
	id := ranges[0].ID
	found := false
	for _, r := range ranges {
		if protocol >= r.Since {
			id = r.ID
			found = true
		}
	}
	return id, found || protocol >= ranges[0].Since
}

// ID returns the wire id for name in state/direction at protocol, and
// whether the packet is known at all.
func ID(name Name, state State, dir Direction, protocol Protocol) (int32, bool) {
	switch state {
	case StateHandshake, StateLogin:
		if dir == Serverbound {
			return lookup(serverboundIDs, name, protocol)
		}
		return lookup(clientboundLoginIDs, name, protocol)
	case StateStatus:
		if dir == Serverbound {
			return lookup(serverboundIDs, name, protocol)
		}
		return lookup(clientboundStatusIDs, name, protocol)
	case StatePlay:
		if dir == Serverbound {
			return lookup(serverboundIDs, name, protocol)
		}
		return lookup(clientboundPlayIDs, name, protocol)
	default:
		return 0, false
	}
}

// State mirrors proto.ClientState without importing internal/proto, to
// keep this package dependency-free for unit testing the id tables.
type State int

const (
	StateHandshake State = iota
	StateStatus
	StateLogin
	StatePlay
)

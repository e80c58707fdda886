// Package mc holds the small Minecraft-server-adjacent ancillary
// concerns that feed the core: banned-IP/whitelist/ops file parsing,
// server.properties rewriting, favicon encoding, the offline-player
// UUID derivation, and stub boundary types for RCON and NBT that are
// out of scope per spec.md §1/§6.
package mc

import (
	"encoding/json"
	"net"
	"os"
	"time"
)

// BanEntry mirrors a single element of banned-ips.json.
type BanEntry struct {
	IP      string `json:"ip"`
	Created string `json:"created"`
	Source  string `json:"source"`
	Expires string `json:"expires"`
	Reason  string `json:"reason"`
}

// BanList is the set of currently-active banned IPs, derived from a
// banned-ips.json snapshot by dropping anything already expired.
type BanList struct {
	active map[string]struct{}
}

// LoadBanList parses banned-ips.json at path and returns the set of IPs
// that are active right now (expires == "forever" or in the future).
func LoadBanList(path string, now time.Time) (*BanList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &BanList{active: map[string]struct{}{}}, nil
		}
		return nil, err
	}

	var entries []BanEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	active := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Expires != "" && e.Expires != "forever" {
			if t, err := time.Parse(time.RFC3339, e.Expires); err == nil && now.After(t) {
				continue
			}
		}
		ip := net.ParseIP(e.IP)
		if ip == nil {
			continue
		}
		active[ip.String()] = struct{}{}
	}
	return &BanList{active: active}, nil
}

// Contains reports whether ip (as a string, e.g. from net.Addr) is
// currently banned.
func (b *BanList) Contains(ip string) bool {
	if b == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		_, ok := b.active[ip]
		return ok
	}
	_, ok := b.active[parsed.String()]
	return ok
}

// Has127001 reports whether the loopback address ended up banned, which
// the file-watch feed warns about (spec.md §4.10).
func (b *BanList) Has127001() bool {
	if b == nil {
		return false
	}
	return b.Contains("127.0.0.1")
}

package mc

import (
	"encoding/json"
	"os"
	"strings"
)

// WhitelistEntry mirrors a single element of whitelist.json.
type WhitelistEntry struct {
	Name string `json:"name"`
	UUID string `json:"uuid,omitempty"`
}

// OpEntry mirrors a single element of ops.json.
type OpEntry struct {
	Name                string `json:"name"`
	UUID                string `json:"uuid,omitempty"`
	Level               int    `json:"level,omitempty"`
	BypassesPlayerLimit bool   `json:"bypassesPlayerLimit,omitempty"`
}

// Whitelist is a read-mostly snapshot of usernames and operator names,
// replaced wholesale on file-watch reload rather than mutated in place.
type Whitelist struct {
	usernames map[string]struct{}
	ops       map[string]struct{}
}

// LoadWhitelist parses whitelist.json and ops.json at the given paths.
// A missing whitelist.json yields an empty (not nil) Whitelist so
// IsWhitelisted always has a well-defined answer once enforcement is on.
func LoadWhitelist(whitelistPath, opsPath string) (*Whitelist, error) {
	w := &Whitelist{usernames: map[string]struct{}{}, ops: map[string]struct{}{}}

	if entries, err := readWhitelistFile(whitelistPath); err != nil {
		return nil, err
	} else {
		for _, e := range entries {
			w.usernames[strings.ToLower(e.Name)] = struct{}{}
		}
	}

	if entries, err := readOpsFile(opsPath); err != nil {
		return nil, err
	} else {
		for _, e := range entries {
			w.ops[strings.ToLower(e.Name)] = struct{}{}
		}
	}

	return w, nil
}

func readWhitelistFile(path string) ([]WhitelistEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []WhitelistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func readOpsFile(path string) ([]OpEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []OpEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// IsWhitelisted reports whether username is allowed to wake/join the
// server, whether by whitelist.json or ops.json.
func (w *Whitelist) IsWhitelisted(username string) bool {
	if w == nil {
		return false
	}
	lower := strings.ToLower(username)
	if _, ok := w.usernames[lower]; ok {
		return true
	}
	_, ok := w.ops[lower]
	return ok
}

package mc

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// propLine is either a comment/blank line (Key == "") or a key=value
// pair, kept in file order so rewriting only touches patched keys.
type propLine struct {
	Raw   string
	Key   string
	Value string
}

// ServerProperties is a parsed server.properties file: comments and
// ordering are preserved so RewritePatch only changes the keys named in
// its patch set.
type ServerProperties struct {
	lines []propLine
}

// LoadServerProperties parses key=value lines from path, preserving
// comments (# prefixed) and blank lines verbatim.
func LoadServerProperties(path string) (*ServerProperties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ServerProperties{}, nil
		}
		return nil, fmt.Errorf("mc: read server.properties: %w", err)
	}

	sp := &ServerProperties{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(trimmed), "#") || strings.TrimSpace(trimmed) == "" {
			sp.lines = append(sp.lines, propLine{Raw: trimmed})
			continue
		}
		idx := strings.IndexByte(trimmed, '=')
		if idx < 0 {
			sp.lines = append(sp.lines, propLine{Raw: trimmed})
			continue
		}
		sp.lines = append(sp.lines, propLine{
			Key:   trimmed[:idx],
			Value: trimmed[idx+1:],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mc: scan server.properties: %w", err)
	}
	return sp, nil
}

// Get returns a key's value and whether it was present.
func (sp *ServerProperties) Get(key string) (string, bool) {
	for _, l := range sp.lines {
		if l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

// WhiteListEnabled reports server.properties' white-list flag, which
// the file-watch feed uses to decide whether the whitelist cache should
// be cleared (spec.md §4.10).
func (sp *ServerProperties) WhiteListEnabled() bool {
	v, ok := sp.Get("white-list")
	return ok && strings.EqualFold(v, "true")
}

// RewritePatch writes path back out with only the keys in patch changed
// (comments and ordering preserved), using CRLF line endings the way
// Java's Properties.store does.
func RewritePatch(path string, sp *ServerProperties, patch map[string]string) error {
	var buf bytes.Buffer
	seen := make(map[string]bool, len(patch))

	for _, l := range sp.lines {
		if l.Key == "" {
			buf.WriteString(l.Raw)
			buf.WriteString("\r\n")
			continue
		}
		value := l.Value
		if v, ok := patch[l.Key]; ok {
			value = v
			seen[l.Key] = true
		}
		fmt.Fprintf(&buf, "%s=%s\r\n", l.Key, value)
	}
	for k, v := range patch {
		if !seen[k] {
			fmt.Fprintf(&buf, "%s=%s\r\n", k, v)
		}
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

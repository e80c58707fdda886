package mc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadServerPropertiesParsesKeysAndComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.properties")
	content := "#comment\n\nserver-ip=\nserver-port=25565\nwhite-list=true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sp, err := LoadServerProperties(path)
	if err != nil {
		t.Fatalf("LoadServerProperties: %v", err)
	}

	if v, ok := sp.Get("server-port"); !ok || v != "25565" {
		t.Errorf("server-port = %q, %v, want 25565, true", v, ok)
	}
	if !sp.WhiteListEnabled() {
		t.Error("WhiteListEnabled() should be true")
	}
}

func TestLoadServerPropertiesMissingFile(t *testing.T) {
	sp, err := LoadServerProperties(filepath.Join(t.TempDir(), "missing.properties"))
	if err != nil {
		t.Fatalf("LoadServerProperties on a missing file should not error: %v", err)
	}
	if _, ok := sp.Get("anything"); ok {
		t.Error("an empty ServerProperties should have no keys")
	}
	if sp.WhiteListEnabled() {
		t.Error("an empty ServerProperties should report white-list disabled")
	}
}

func TestRewritePatchPreservesCommentsAndOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.properties")
	content := "#header\nserver-ip=\nserver-port=25565\nmotd=hi\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sp, err := LoadServerProperties(path)
	if err != nil {
		t.Fatalf("LoadServerProperties: %v", err)
	}

	if err := RewritePatch(path, sp, map[string]string{"server-ip": "127.0.0.1", "server-port": "25566"}); err != nil {
		t.Fatalf("RewritePatch: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	text := string(out)

	if !strings.Contains(text, "#header\r\n") {
		t.Error("expected the comment to be preserved")
	}
	if !strings.Contains(text, "server-ip=127.0.0.1\r\n") {
		t.Errorf("server-ip was not patched: %s", text)
	}
	if !strings.Contains(text, "server-port=25566\r\n") {
		t.Errorf("server-port was not patched: %s", text)
	}
	if !strings.Contains(text, "motd=hi\r\n") {
		t.Error("unpatched key should be preserved verbatim")
	}

	headerIdx := strings.Index(text, "#header")
	ipIdx := strings.Index(text, "server-ip")
	portIdx := strings.Index(text, "server-port")
	motdIdx := strings.Index(text, "motd")
	if !(headerIdx < ipIdx && ipIdx < portIdx && portIdx < motdIdx) {
		t.Error("RewritePatch should preserve line order")
	}
}

func TestRewritePatchAppendsUnseenKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.properties")
	if err := os.WriteFile(path, []byte("motd=hi\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sp, err := LoadServerProperties(path)
	if err != nil {
		t.Fatalf("LoadServerProperties: %v", err)
	}

	if err := RewritePatch(path, sp, map[string]string{"server-ip": "10.0.0.1"}); err != nil {
		t.Fatalf("RewritePatch: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(out), "server-ip=10.0.0.1\r\n") {
		t.Errorf("expected the new key to be appended: %s", out)
	}
}

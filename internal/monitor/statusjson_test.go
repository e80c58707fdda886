package monitor

import "testing"

func TestParseStatusJSONStringDescription(t *testing.T) {
	raw := `{"version":{"name":"1.21.1","protocol":767},"players":{"max":20,"online":3},"description":"A Minecraft Server","favicon":"data:image/png;base64,abc"}`

	snap, err := parseStatusJSON(raw)
	if err != nil {
		t.Fatalf("parseStatusJSON: %v", err)
	}
	if snap.VersionName != "1.21.1" || snap.VersionProtocol != 767 {
		t.Errorf("version = %q/%d, want 1.21.1/767", snap.VersionName, snap.VersionProtocol)
	}
	if snap.PlayersOnline != 3 || snap.PlayersMax != 20 {
		t.Errorf("players = %d/%d, want 3/20", snap.PlayersOnline, snap.PlayersMax)
	}
	if snap.MOTD != "A Minecraft Server" {
		t.Errorf("MOTD = %q, want %q", snap.MOTD, "A Minecraft Server")
	}
	if snap.Favicon != "data:image/png;base64,abc" {
		t.Errorf("Favicon = %q", snap.Favicon)
	}
}

func TestParseStatusJSONChatComponentDescription(t *testing.T) {
	raw := `{"version":{"name":"1.20.4","protocol":765},"players":{"max":10,"online":0},"description":{"text":"Hello ","extra":[{"text":"World"}]}}`

	snap, err := parseStatusJSON(raw)
	if err != nil {
		t.Fatalf("parseStatusJSON: %v", err)
	}
	if snap.MOTD != "Hello World" {
		t.Errorf("MOTD = %q, want %q", snap.MOTD, "Hello World")
	}
}

func TestParseStatusJSONInvalid(t *testing.T) {
	if _, err := parseStatusJSON("not json"); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestSplitHostPort(t *testing.T) {
	host, port := splitHostPort("127.0.0.1:25566")
	if host != "127.0.0.1" || port != 25566 {
		t.Errorf("splitHostPort = %q, %d, want 127.0.0.1, 25566", host, port)
	}
}

func TestSplitHostPortFallback(t *testing.T) {
	host, port := splitHostPort("not-a-valid-addr")
	if host != "not-a-valid-addr" || port != 25565 {
		t.Errorf("splitHostPort fallback = %q, %d, want original host and 25565", host, port)
	}
}

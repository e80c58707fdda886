package monitor

import (
	"encoding/json"
	"fmt"

	"github.com/lazymc-go/lazymc/internal/server"
)

// wireStatus mirrors the JSON shape of a vanilla StatusResponse.
type wireStatus struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int32  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     string          `json:"favicon"`
}

// parseStatusJSON decodes a status response's JSON body into a
// StatusSnapshot. The description field may be a bare string or a
// chat-component object; only the flattened text is kept, matching
// what the status front-end needs to republish as a MOTD.
func parseStatusJSON(raw string) (*server.StatusSnapshot, error) {
	var ws wireStatus
	if err := json.Unmarshal([]byte(raw), &ws); err != nil {
		return nil, fmt.Errorf("monitor: parse status json: %w", err)
	}

	return &server.StatusSnapshot{
		VersionName:     ws.Version.Name,
		VersionProtocol: ws.Version.Protocol,
		MOTD:            flattenDescription(ws.Description),
		PlayersOnline:   ws.Players.Online,
		PlayersMax:      ws.Players.Max,
		Favicon:         ws.Favicon,
	}, nil
}

func flattenDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var comp struct {
		Text  string `json:"text"`
		Extra []struct {
			Text string `json:"text"`
		} `json:"extra"`
	}
	if err := json.Unmarshal(raw, &comp); err == nil {
		out := comp.Text
		for _, e := range comp.Extra {
			out += e.Text
		}
		return out
	}

	return ""
}

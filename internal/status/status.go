// Package status implements the status front-end described in
// spec.md §4.6: answer STATUS_REQUEST with a synthesized response
// reflecting the current server state, and echo PING verbatim.
package status

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/lazymc-go/lazymc/internal/client"
	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/proto"
	"github.com/lazymc-go/lazymc/internal/server"
)

type wireVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type wirePlayers struct {
	Max    int           `json:"max"`
	Online int           `json:"online"`
	Sample []interface{} `json:"sample"`
}

type wireResponse struct {
	Version     wireVersion `json:"version"`
	Players     wirePlayers `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	Favicon string `json:"favicon,omitempty"`
}

// Serve answers one status-state conversation on conn: a STATUS_REQUEST
// followed by an optional PING, then returns. The caller has already
// consumed the HANDSHAKE packet before entering status state.
func Serve(conn net.Conn, r *bufio.Reader, cc *client.Context, cfg config.Config, ctrl *server.Controller) error {
	for {
		pkt, _, err := proto.ReadPacket(r, cc.Compression())
		if err != nil {
			return err
		}

		switch pkt.ID {
		case 0x00: // STATUS_REQUEST
			resp := buildResponse(cfg, ctrl, cc)
			body, err := json.Marshal(resp)
			if err != nil {
				return fmt.Errorf("status: marshal response: %w", err)
			}
			b := proto.NewBuilder()
			b.String(string(body))
			if err := writePacket(conn, cc, proto.RawPacket{ID: 0x00, Data: b.Bytes()}); err != nil {
				return err
			}

		case 0x01: // PING
			if err := writePacket(conn, cc, proto.RawPacket{ID: 0x01, Data: pkt.Data}); err != nil {
				return err
			}
			return nil

		default:
			return fmt.Errorf("status: unexpected packet id 0x%02x", pkt.ID)
		}
	}
}

func buildResponse(cfg config.Config, ctrl *server.Controller, cc *client.Context) wireResponse {
	snap := ctrl.CloneStatus()

	resp := wireResponse{
		Version: wireVersion{Name: cfg.Public.Version, Protocol: cfg.Public.Protocol},
		Players: wirePlayers{Max: 20, Sample: []interface{}{}},
	}

	resp.Favicon = ctrl.DefaultFavicon()
	if snap != nil {
		resp.Version.Name = snap.VersionName
		resp.Version.Protocol = snap.VersionProtocol
		resp.Players.Max = snap.PlayersMax
		if snap.Favicon != "" {
			resp.Favicon = snap.Favicon
		}
	}
	resp.Players.Online = 0

	switch ctrl.State() {
	case server.Starting:
		resp.Description.Text = cfg.Messages.MotdStarting
	case server.Stopping:
		resp.Description.Text = cfg.Messages.MotdStopping
	default:
		resp.Description.Text = cfg.Messages.MotdSleeping
	}

	if cc.Protocol < 4 {
		resp.Favicon = ""
	}

	return resp
}

func writePacket(conn net.Conn, cc *client.Context, p proto.RawPacket) error {
	frame, err := proto.EncodeRawPacket(p, cc.Compression())
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

// Package probe implements the one-shot synthetic login described in
// spec.md §4.5: start the backend if needed, log a throwaway client in
// just far enough to capture its first JOIN_GAME and any Forge
// handshake payload, then disconnect.
package probe

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/forge"
	"github.com/lazymc-go/lazymc/internal/mc"
	"github.com/lazymc-go/lazymc/internal/proto"
	"github.com/lazymc-go/lazymc/internal/proto/packet"
	"github.com/lazymc-go/lazymc/internal/server"
)

const (
	probeUsername      = "_lazymc_probe"
	connectTimeout      = 30 * time.Second
	onlineTimeout       = 10 * time.Minute
	joinGameTimeout     = 20 * time.Second
)

// Run starts the backend if it isn't already starting, waits for it to
// come online, then connects far enough to capture JOIN_GAME and any
// Forge payload onto ctrl.
func Run(ctx context.Context, log *zap.Logger, cfg config.Config, ctrl *server.Controller) error {
	log.Debug("starting server probe")

	if err := ctrl.Start(""); err != nil {
		return fmt.Errorf("probe: start server: %w", err)
	}

	if !waitUntilOnline(ctx, log, ctrl) {
		return fmt.Errorf("probe: server did not come online in time")
	}

	log.Debug("connecting to server to probe details")

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	forgePayload, joinGame, err := connectAndProbe(connCtx, log, cfg)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	ctrl.SetForgePayload(forgePayload)
	ctrl.SetProbedJoinGame(joinGame)
	return nil
}

func waitUntilOnline(ctx context.Context, log *zap.Logger, ctrl *server.Controller) bool {
	deadline := time.Now().Add(onlineTimeout)

	for {
		switch ctrl.State() {
		case server.Started:
			return true
		case server.Stopping:
			log.Warn("server stopping while trying to probe, skipping")
			return false
		case server.Stopped:
			log.Error("server stopped while trying to probe, skipping")
			return false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Warn("probe timed out waiting for server to come online")
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(minDuration(remaining, time.Second)):
		case <-ctrl.Watch():
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// connectAndProbe opens a connection, drives it through login as
// probeUsername, and returns the raw Forge login-plugin frames
// observed plus the JOIN_GAME data once play state is reached.
func connectAndProbe(ctx context.Context, log *zap.Logger, cfg config.Config) ([]byte, *server.JoinGameData, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Server.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if cfg.Server.SendProxyV2 {
		if err := mc.WriteLocalProxyV2Header(conn); err != nil {
			return nil, nil, fmt.Errorf("write proxy header: %w", err)
		}
	}

	host, port := splitHostPort(cfg.Server.Address)
	if cfg.Server.Forge {
		host += forge.StatusMagic
	}

	hb := proto.NewBuilder()
	hb.VarInt(cfg.Public.Protocol)
	hb.String(host)
	hb.RawBytes([]byte{byte(port >> 8), byte(port)})
	hb.VarInt(2) // next_state = Login
	if err := writeFrame(conn, proto.RawPacket{ID: 0x00, Data: hb.Bytes()}); err != nil {
		return nil, nil, fmt.Errorf("send handshake: %w", err)
	}

	lb := proto.NewBuilder()
	lb.String(probeUsername)
	if err := writeFrame(conn, proto.RawPacket{ID: 0x00, Data: lb.Bytes()}); err != nil {
		return nil, nil, fmt.Errorf("send login start: %w", err)
	}

	r := bufio.NewReader(conn)
	comp := proto.ClientCompression{Threshold: -1}
	var forgePayload []byte
	state := packet.StateLogin

	for {
		pkt, raw, err := proto.ReadPacket(r, comp)
		if err != nil {
			return nil, nil, fmt.Errorf("read packet: %w", err)
		}

		if state == packet.StateLogin {
			if id, ok := packet.ID(packet.SetCompression, packet.StateLogin, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id {
				pr := proto.NewReader(pkt.Data)
				threshold := int(pr.VarInt())
				comp = proto.ClientCompression{Threshold: threshold}
				continue
			}

			if id, ok := packet.ID(packet.LoginPluginRequest, packet.StateLogin, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id {
				if cfg.Server.Forge {
					forgePayload = append(forgePayload, raw...)
					if err := respondForgeLoginPlugin(conn, pkt); err != nil {
						return nil, nil, fmt.Errorf("respond forge login plugin: %w", err)
					}
					continue
				}

				log.Warn("got unexpected login plugin request, responding with failure")
				resp := proto.NewBuilder()
				pr := proto.NewReader(pkt.Data)
				msgID := pr.VarInt()
				resp.VarInt(msgID)
				resp.Bool(false)
				respID, _ := packet.ID(packet.LoginPluginResp, packet.StateLogin, packet.Serverbound, packet.Protocol(cfg.Public.Protocol))
				if err := writeFrame(conn, proto.RawPacket{ID: respID, Data: resp.Bytes()}); err != nil {
					return nil, nil, err
				}
				continue
			}

			if id, ok := packet.ID(packet.LoginSuccess, packet.StateLogin, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id {
				state = packet.StatePlay
				conn.SetReadDeadline(time.Now().Add(joinGameTimeout))
				jg, err := waitForJoinGame(r, comp, cfg)
				if err != nil {
					return nil, nil, err
				}
				return forgePayload, jg, nil
			}

			continue
		}
	}
}

func respondForgeLoginPlugin(conn net.Conn, pkt proto.RawPacket) error {
	pr := proto.NewReader(pkt.Data)
	msgID := pr.VarInt()
	wrapper, err := forge.DecodeWrapper(pr.Rest())
	if err != nil {
		return err
	}
	reply := forge.BuildReply(wrapper)

	rb := proto.NewBuilder()
	rb.VarInt(msgID)
	rb.Bool(true)
	rb.RawBytes(reply)
	return writeFrame(conn, proto.RawPacket{ID: 0x02, Data: rb.Bytes()})
}

func waitForJoinGame(r *bufio.Reader, comp proto.ClientCompression, cfg config.Config) (*server.JoinGameData, error) {
	for {
		pkt, _, err := proto.ReadPacket(r, comp)
		if err != nil {
			return nil, fmt.Errorf("read play packet: %w", err)
		}
		if id, ok := packet.ID(packet.JoinGame, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id {
			jg, err := server.ParseJoinGame(cfg.Public.Protocol, pkt.Data)
			if err != nil {
				return nil, err
			}
			return &jg, nil
		}
	}
}

func writeFrame(conn net.Conn, p proto.RawPacket) error {
	frame, err := proto.EncodeRawPacket(p, proto.ClientCompression{Threshold: -1})
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 25565
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return host, port
}

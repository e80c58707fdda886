package login

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/client"
	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/forge"
	"github.com/lazymc-go/lazymc/internal/mc"
	"github.com/lazymc-go/lazymc/internal/proto"
	"github.com/lazymc-go/lazymc/internal/proto/packet"
	"github.com/lazymc-go/lazymc/internal/relay"
	"github.com/lazymc-go/lazymc/internal/server"
)

// compressionThreshold mirrors the original's fixed server-side
// compression threshold; lazymc doesn't expose it as config because
// it only applies to the lobby session it plays toward the client.
const compressionThreshold = 256

const (
	keepAliveInterval     = 10 * time.Second
	serverConnectTimeout  = 2 * time.Minute
	serverJoinGameTimeout = 20 * time.Second
	serverWarmup          = 1 * time.Second
)

const serverBrand = "lazymc"

// runLobby implements spec.md §4.8's Lobby occupation method: a full
// synthetic play-state followed by a hot handoff to the real server.
func runLobby(log *zap.Logger, conn net.Conn, r *bufio.Reader, cc *client.Context, username string, cfg config.Config, ctrl *server.Controller) (result, error) {
	if compressionThreshold >= 0 {
		b := proto.NewBuilder()
		b.VarInt(compressionThreshold)
		if err := writeLobbyPacket(conn, cc, 0x03, b.Bytes()); err != nil {
			return consumed, err
		}
		cc.SetCompressionThreshold(compressionThreshold)
	}

	uid := mc.OfflinePlayerUUID(username)
	hi, lo := uuidHiLo(uid)
	lb := proto.NewBuilder()
	lb.UUID(hi, lo)
	lb.String(username)
	if err := writeLobbyPacket(conn, cc, 0x02, lb.Bytes()); err != nil {
		return consumed, err
	}
	cc.SetState(proto.StatePlay)

	jg := ctrl.ProbedJoinGame()
	var jgData server.JoinGameData
	if jg != nil {
		jgData = *jg
	} else {
		jgData = server.DefaultJoinGameData
	}
	jgData.WorldNames = []string{"lazymc:lobby"}
	jgData.DimensionName = "lazymc:lobby"
	jgData.GameMode = 3 // spectator
	jgData.Hardcore = false

	if err := sendLobbyPlayPackets(conn, cc, cfg, jgData); err != nil {
		return consumed, err
	}

	if !stageWait(log, conn, cc, cfg, ctrl) {
		return consumed, kickNow(conn, cc, cfg.Messages.LoginStarting)
	}

	upstream, upstreamJoin, err := connectToServer(log, conn, cc, username, cfg, ctrl)
	if err != nil {
		return consumed, kickNow(conn, cc, "Failed to connect you to the real server.")
	}

	if err := sendLobbyTitle(conn, cc, cfg, ""); err != nil {
		upstream.Close()
		return consumed, err
	}
	if cfg.Join.Lobby.ReadySound != "" {
		if err := playLobbyReadySound(conn, cc, cfg); err != nil {
			log.Debug("failed to play lobby ready sound", zap.Error(err))
		}
	}

	time.Sleep(serverWarmup)

	if err := writeLobbyPacket(conn, cc, respawnID(cfg), server.BuildRespawn(cfg.Public.Protocol, upstreamJoin)); err != nil {
		upstream.Close()
		return consumed, err
	}

	discard(r)

	relay.Pump(log, conn, upstream, nil, nil)
	return consumed, nil
}

func uuidHiLo(u uuid.UUID) (uint64, uint64) {
	return binary.BigEndian.Uint64(u[:8]), binary.BigEndian.Uint64(u[8:])
}

func writeLobbyPacket(conn net.Conn, cc *client.Context, id int32, data []byte) error {
	frame, err := proto.EncodeRawPacket(proto.RawPacket{ID: id, Data: data}, cc.Compression())
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

func sendLobbyPlayPackets(conn net.Conn, cc *client.Context, cfg config.Config, jg server.JoinGameData) error {
	joinGameID, _ := packet.ID(packet.JoinGame, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))
	if err := writeLobbyPacket(conn, cc, joinGameID, server.BuildJoinGame(cfg.Public.Protocol, jg)); err != nil {
		return fmt.Errorf("lobby: send join game: %w", err)
	}

	pmID, _ := packet.ID(packet.PluginMessage, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))
	pb := proto.NewBuilder()
	pb.String("minecraft:brand")
	pb.String(serverBrand)
	if err := writeLobbyPacket(conn, cc, pmID, pb.Bytes()); err != nil {
		return fmt.Errorf("lobby: send brand: %w", err)
	}

	if err := sendPlayerPos(conn, cc, cfg); err != nil {
		return err
	}

	timeID, _ := packet.ID(packet.TimeUpdate, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))
	tb := proto.NewBuilder()
	tb.Long(0)
	tb.Long(0)
	if err := writeLobbyPacket(conn, cc, timeID, tb.Bytes()); err != nil {
		return fmt.Errorf("lobby: send time update: %w", err)
	}

	return nil
}

func sendPlayerPos(conn net.Conn, cc *client.Context, cfg config.Config) error {
	posID, _ := packet.ID(packet.PlayerPosLook, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))
	b := proto.NewBuilder()
	b.Double(0)
	b.Double(64)
	b.Double(0)
	b.Float(0)
	b.Float(0)
	b.Byte(0)
	b.VarInt(0)
	return writeLobbyPacket(conn, cc, posID, b.Bytes())
}

func sendLobbyTitle(conn net.Conn, cc *client.Context, cfg config.Config, text string) error {
	if text == "" {
		text = cfg.Join.Lobby.Message
	}
	titleID, _ := packet.ID(packet.TitleText, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))
	b := proto.NewBuilder()
	b.String(fmt.Sprintf(`{"text":%q}`, text))
	return writeLobbyPacket(conn, cc, titleID, b.Bytes())
}

func playLobbyReadySound(conn net.Conn, cc *client.Context, cfg config.Config) error {
	if err := sendPlayerPos(conn, cc, cfg); err != nil {
		return err
	}
	soundID, _ := packet.ID(packet.NamedSoundEffect, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))
	b := proto.NewBuilder()
	b.String(cfg.Join.Lobby.ReadySound)
	b.VarInt(0) // category: master
	b.Int(0)
	b.Int(64 * 8)
	b.Int(0)
	b.Float(1)
	b.Float(1)
	return writeLobbyPacket(conn, cc, soundID, b.Bytes())
}

func respawnID(cfg config.Config) int32 {
	id, _ := packet.ID(packet.Respawn, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))
	return id
}

// stageWait races a keep-alive/title refresh loop against waiting for
// the server to come online, exactly as the original's stage_wait
// select! does: whichever finishes first wins.
func stageWait(log *zap.Logger, conn net.Conn, cc *client.Context, cfg config.Config, ctrl *server.Controller) bool {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	online := make(chan bool, 1)
	go func() { online <- waitForServer(ctx, cfg, ctrl) }()

	keepAliveDone := make(chan struct{})
	go func() {
		defer close(keepAliveDone)
		keepAliveLoop(ctx, conn, cc, cfg)
	}()

	select {
	case ok := <-online:
		return ok
	case <-keepAliveDone:
		return false
	}
}

func waitForServer(ctx context.Context, cfg config.Config, ctrl *server.Controller) bool {
	deadline := time.Now().Add(time.Duration(cfg.Join.Lobby.TimeoutSecs) * time.Second)

	for {
		switch ctrl.State() {
		case server.Started:
			return true
		case server.Stopping, server.Stopped:
			return false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(minDur(remaining, time.Second)):
		case <-ctrl.Watch():
		}
	}
}

func keepAliveLoop(ctx context.Context, conn net.Conn, cc *client.Context, cfg config.Config) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	var id int64
	keepAliveID, _ := packet.ID(packet.KeepAlive, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id++
			b := proto.NewBuilder()
			b.Long(id)
			if err := writeLobbyPacket(conn, cc, keepAliveID, b.Bytes()); err != nil {
				return
			}
			if err := sendLobbyTitle(conn, cc, cfg, ""); err != nil {
				return
			}
		}
	}
}

// connectToServer opens the real upstream connection as username,
// sending a fresh handshake built from cfg, draining SET_COMPRESSION,
// answering Forge login-plugin requests if configured, and waiting for
// the server's JOIN_GAME.
func connectToServer(log *zap.Logger, inbound net.Conn, cc *client.Context, username string, cfg config.Config, ctrl *server.Controller) (net.Conn, server.JoinGameData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), serverConnectTimeout)
	defer cancel()

	var d net.Dialer
	upstream, err := d.DialContext(ctx, "tcp", cfg.Server.Address)
	if err != nil {
		return nil, server.JoinGameData{}, fmt.Errorf("lobby: dial server: %w", err)
	}

	if cfg.Server.SendProxyV2 {
		if err := mc.WriteProxyV2Header(upstream, inbound.RemoteAddr(), upstream.RemoteAddr()); err != nil {
			upstream.Close()
			return nil, server.JoinGameData{}, err
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
	hb.VarInt(2)
	if err := writeUpstream(upstream, proto.RawPacket{ID: 0x00, Data: hb.Bytes()}, proto.ClientCompression{Threshold: -1}); err != nil {
		upstream.Close()
		return nil, server.JoinGameData{}, err
	}

	lb := proto.NewBuilder()
	lb.String(username)
	if err := writeUpstream(upstream, proto.RawPacket{ID: 0x00, Data: lb.Bytes()}, proto.ClientCompression{Threshold: -1}); err != nil {
		upstream.Close()
		return nil, server.JoinGameData{}, err
	}

	r := bufio.NewReader(upstream)
	comp := proto.ClientCompression{Threshold: -1}
	forgeResponsesPending := 0

	deadline := time.Now().Add(serverJoinGameTimeout)

	for {
		pkt, _, err := proto.ReadPacket(r, comp)
		if err != nil {
			upstream.Close()
			return nil, server.JoinGameData{}, fmt.Errorf("lobby: read server packet: %w", err)
		}

		if id, ok := packet.ID(packet.SetCompression, packet.StateLogin, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id {
			pr := proto.NewReader(pkt.Data)
			threshold := int(pr.VarInt())
			if threshold != compressionThreshold {
				log.Warn("server compression threshold differs from lobby client's", zap.Int("server", threshold), zap.Int("client", compressionThreshold))
			}
			comp = proto.ClientCompression{Threshold: threshold}
			continue
		}

		if id, ok := packet.ID(packet.LoginPluginRequest, packet.StateLogin, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id && cfg.Server.Forge {
			if err := replayForgeExchange(upstream, inbound, cc, pkt, cfg); err != nil {
				upstream.Close()
				return nil, server.JoinGameData{}, err
			}
			forgeResponsesPending++
			continue
		}

		if id, ok := packet.ID(packet.LoginSuccess, packet.StateLogin, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id {
			break
		}
	}

	joinDeadline := deadline
	for {
		if time.Now().After(joinDeadline) {
			upstream.Close()
			return nil, server.JoinGameData{}, fmt.Errorf("lobby: timed out waiting for server join game")
		}
		upstream.SetReadDeadline(joinDeadline)
		pkt, _, err := proto.ReadPacket(r, comp)
		if err != nil {
			upstream.Close()
			return nil, server.JoinGameData{}, fmt.Errorf("lobby: read join game: %w", err)
		}
		if id, ok := packet.ID(packet.JoinGame, packet.StatePlay, packet.Clientbound, packet.Protocol(cfg.Public.Protocol)); ok && pkt.ID == id {
			jg, err := server.ParseJoinGame(cfg.Public.Protocol, pkt.Data)
			if err != nil {
				upstream.Close()
				return nil, server.JoinGameData{}, err
			}
			upstream.SetReadDeadline(time.Time{})
			return upstream, jg, nil
		}
	}
}

// replayForgeExchange answers one of the real server's Forge
// login-plugin requests with the reply forge.BuildReply derives from
// it. It does not use the forge payload cached by the probe, and it
// reads nothing from the real client: inbound and cc are unused.
func replayForgeExchange(upstream, inbound net.Conn, cc *client.Context, serverPkt proto.RawPacket, cfg config.Config) error {
	pr := proto.NewReader(serverPkt.Data)
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
	return writeUpstream(upstream, proto.RawPacket{ID: 0x02, Data: rb.Bytes()}, proto.ClientCompression{Threshold: -1})
}

func writeUpstream(conn net.Conn, p proto.RawPacket, comp proto.ClientCompression) error {
	frame, err := proto.EncodeRawPacket(p, comp)
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

func discard(r *bufio.Reader) {
	buf := make([]byte, r.Buffered())
	r.Read(buf)
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

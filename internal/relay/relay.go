// Package relay implements the byte relay handoff described in
// spec.md §4.9: once a client has been accepted (held, forwarded, or
// handed off from the lobby), pump bytes in both directions until
// either side closes.
package relay

import (
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Pump copies bytes bidirectionally between client and upstream,
// writing clientPrefix and upstreamPrefix (queued bytes seen before the
// handoff) before the copy loops start. Returns once both directions
// have finished; network errors are logged at warn level, not
// returned, matching the original's "close the stream" treatment.
func Pump(log *zap.Logger, client, upstream net.Conn, clientPrefix, upstreamPrefix []byte) {
	defer client.Close()
	defer upstream.Close()

	if len(upstreamPrefix) > 0 {
		if _, err := upstream.Write(upstreamPrefix); err != nil {
			log.Warn("relay: failed to write queued bytes upstream", zap.Error(err))
			return
		}
	}
	if len(clientPrefix) > 0 {
		if _, err := client.Write(clientPrefix); err != nil {
			log.Warn("relay: failed to write queued bytes to client", zap.Error(err))
			return
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		copyHalf(log, upstream, client, "client->server")
	}()
	go func() {
		defer wg.Done()
		copyHalf(log, client, upstream, "server->client")
	}()

	wg.Wait()
}

func copyHalf(log *zap.Logger, dst, src net.Conn, label string) {
	_, err := io.Copy(dst, src)
	if cw, ok := dst.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}
	if err != nil && !isClosed(err) {
		log.Warn("relay: copy error", zap.String("direction", label), zap.Error(err))
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

package relay

import (
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPumpWritesQueuedPrefixesBeforeClosing(t *testing.T) {
	tc, cConn := net.Pipe()
	tu, uConn := net.Pipe()

	deadline := time.Now().Add(5 * time.Second)
	tc.SetDeadline(deadline)
	tu.SetDeadline(deadline)

	clientPrefix := []byte("CLIENTPREFIX")
	upstreamPrefix := []byte("UPSTREAMPREFIX")

	done := make(chan struct{})
	go func() {
		Pump(zap.NewNop(), cConn, uConn, clientPrefix, upstreamPrefix)
		close(done)
	}()

	clientGot := make(chan string, 1)
	upstreamGot := make(chan string, 1)

	go func() {
		buf := make([]byte, len(clientPrefix))
		if _, err := io.ReadFull(tc, buf); err != nil {
			clientGot <- "error: " + err.Error()
			return
		}
		clientGot <- string(buf)
		tc.Close()
	}()

	go func() {
		buf := make([]byte, len(upstreamPrefix))
		if _, err := io.ReadFull(tu, buf); err != nil {
			upstreamGot <- "error: " + err.Error()
			return
		}
		upstreamGot <- string(buf)
		tu.Close()
	}()

	select {
	case got := <-clientGot:
		if got != string(clientPrefix) {
			t.Errorf("client side got %q, want %q", got, clientPrefix)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the client prefix")
	}

	select {
	case got := <-upstreamGot:
		if got != string(upstreamPrefix) {
			t.Errorf("upstream side got %q, want %q", got, upstreamPrefix)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the upstream prefix")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Pump did not return after both sides closed")
	}
}

package mc

import (
	"io"
	"net"

	"github.com/pires/go-proxyproto"
)

// WriteProxyV2Header writes a PROXY protocol v2 preamble to w describing
// a connection from src to dst, the way the lobby/hold/forward paths
// announce the real client address to the backing server
// (spec.md §5 "TCP egress").
func WriteProxyV2Header(w io.Writer, src, dst net.Addr) error {
	header := proxyproto.Header{
		Version:           2,
		Command:           proxyproto.PROXY,
		TransportProtocol: proxyproto.TCPv4,
		SourceAddr:        src,
		DestinationAddr:   dst,
	}
	_, err := header.WriteTo(w)
	return err
}

// WriteLocalProxyV2Header writes a PROXY v2 "LOCAL" preamble, used when
// lazymc itself originates the connection (monitor/probe) rather than
// relaying a real client.
func WriteLocalProxyV2Header(w io.Writer) error {
	header := proxyproto.Header{
		Version:           2,
		Command:           proxyproto.LOCAL,
		TransportProtocol: proxyproto.UNSPEC,
	}
	_, err := header.WriteTo(w)
	return err
}

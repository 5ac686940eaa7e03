package mcpquic

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"

	"github.com/hazyhaar/weaver/kit"
)

// Listener accepts MCP-over-QUIC connections and serves each on mcpSrv.
type Listener struct {
	listener  *quic.Listener
	mcpServer *mcp.Server
	logger    *slog.Logger
}

// NewListener binds addr (UDP).
func NewListener(addr string, tlsCfg *tls.Config, mcpSrv *mcp.Server, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l, err := quic.ListenAddr(addr, tlsCfg, QUICConfig())
	if err != nil {
		return nil, err
	}
	return &Listener{listener: l, mcpServer: mcpSrv, logger: logger}, nil
}

// Addr is the bound address.
func (l *Listener) Addr() string { return l.listener.Addr().String() }

// Serve accepts connections until ctx is done.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		conn, err := l.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error("mcpquic: accept", "error", err)
			continue
		}

		if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
			conn.CloseWithError(ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
			continue
		}
		go l.serveConn(ctx, conn)
	}
}

// Close stops accepting.
func (l *Listener) Close() error {
	return l.listener.Close()
}

func (l *Listener) serveConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		l.logger.Debug("mcpquic: accept stream", "remote", remote, "error", err)
		conn.CloseWithError(ConnErrorProtocolViolation, "stream accept failed")
		return
	}
	if err := ValidateMagicBytes(stream); err != nil {
		l.logger.Warn("mcpquic: bad preamble", "remote", remote, "error", err)
		stream.CancelWrite(StreamErrorProtocolConfusion)
		stream.CancelRead(StreamErrorProtocolConfusion)
		conn.CloseWithError(ConnErrorProtocolViolation, "invalid magic bytes")
		return
	}

	id := "quic_" + uuid.Must(uuid.NewV7()).String()
	ctx = kit.WithTransport(ctx, "mcp_quic")
	ctx = kit.WithRequestID(ctx, id)

	ss, err := l.mcpServer.Connect(ctx, &streamTransport{stream: stream, id: id}, nil)
	if err != nil {
		l.logger.Error("mcpquic: connect", "session", id, "error", err)
		stream.Close()
		return
	}
	l.logger.Info("mcpquic: session", "session", id, "remote", remote)
	if err := ss.Wait(); err != nil {
		l.logger.Debug("mcpquic: session ended", "session", id, "error", err)
	}
}

// streamTransport is an mcp.Transport over one QUIC stream.
type streamTransport struct {
	stream *quic.Stream
	id     string
}

func (t *streamTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	iot := &mcp.IOTransport{
		Reader: io.NopCloser(t.stream),
		Writer: streamWriteCloser{t.stream},
	}
	conn, err := iot.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if t.id == "" {
		return conn, nil
	}
	return &sessionConn{Connection: conn, id: t.id}, nil
}

// sessionConn reports a session ID the IO connection lacks.
type sessionConn struct {
	mcp.Connection
	id string
}

func (c *sessionConn) SessionID() string { return c.id }

type streamWriteCloser struct{ stream *quic.Stream }

func (w streamWriteCloser) Write(p []byte) (int, error) { return w.stream.Write(p) }
func (w streamWriteCloser) Close() error                { return w.stream.Close() }

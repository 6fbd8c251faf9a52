package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/speckit/harness/internal/logging"
	"github.com/speckit/harness/internal/protocol"
)

// Server listens on a local unix domain socket and dispatches each
// connection's requests to a Daemon (§4.4). One connection handles either
// a single non-streaming request/response, or (for `subscribe`) switches
// into a push stream for its remaining lifetime.
type Server struct {
	daemon       *Daemon
	socketPath   string
	listener     net.Listener
	shuttingDown chan struct{}
}

// NewServer binds a Server to socketPath, reclaiming a stale socket left
// behind by a daemon that exited uncleanly. If another daemon is already
// listening, it returns ErrSocketInUse rather than displacing it.
func NewServer(daemon *Daemon, socketPath string) (*Server, error) {
	dir := filepath.Dir(socketPath)
	if err := checkSocketDirPermissions(dir); err != nil {
		return nil, err
	}

	if err := reclaimStaleSocket(socketPath); err != nil {
		return nil, err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	return &Server{
		daemon:       daemon,
		socketPath:   socketPath,
		listener:     listener,
		shuttingDown: make(chan struct{}),
	}, nil
}

// checkSocketDirPermissions refuses to start against a group- or
// world-writable socket directory (§4.4's socket security note).
func checkSocketDirPermissions(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create socket directory %s: %w", dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat socket directory %s: %w", dir, err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return fmt.Errorf("%w: %s has mode %o", ErrInsecureSocketDir, dir, info.Mode().Perm())
	}
	return nil
}

// reclaimStaleSocket dials an existing socket path; a live daemon answers
// (or at least accepts) and this daemon refuses to start a second one. A
// refused or timed-out dial means the previous daemon died without
// cleaning up, so the stale socket file is unlinked before binding.
func reclaimStaleSocket(socketPath string) error {
	if _, err := os.Stat(socketPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat socket %s: %w", socketPath, err)
	}

	conn, err := net.DialTimeout("unix", socketPath, 500*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%w: %s", ErrSocketInUse, socketPath)
	}
	return os.Remove(socketPath)
}

// Serve accepts connections until ctx is canceled or Shutdown is called,
// handling each on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shuttingDown:
				return nil
			default:
				return fmt.Errorf("accept connection: %w", err)
			}
		}
		go s.handleConn(conn)
	}
}

// Shutdown closes the listener and removes the socket file, unblocking
// Serve's accept loop.
func (s *Server) Shutdown() {
	select {
	case <-s.shuttingDown:
		return
	default:
		close(s.shuttingDown)
	}
	s.listener.Close()
	os.Remove(s.socketPath)
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	ctx := logging.WithComponent(context.Background(), "daemon")

	r := bufio.NewReader(conn)
	var req protocol.Request
	if err := protocol.ReadFrame(r, &req); err != nil {
		return // peer disconnected before sending a complete request
	}

	if req.Op == protocol.OpSubscribe {
		s.serveSubscribe(ctx, conn, req)
		return
	}

	resp := dispatch(s.daemon, req)
	if err := protocol.WriteFrame(conn, resp); err != nil {
		logging.Warn(ctx, "write response frame failed", "op", string(req.Op), "error", err.Error())
	}
}

// serveSubscribe switches conn into a push stream of EventFrames until the
// peer disconnects or the daemon shuts down (§4.4 `subscribe`). The
// initial Request's optional agent_id filters the stream to one agent.
func (s *Server) serveSubscribe(ctx context.Context, conn net.Conn, req protocol.Request) {
	var filter protocol.AgentIDArgs
	_ = decodeArgs(req.Args, &filter) // malformed/absent filter means "every agent"

	events, unsubscribe := s.daemon.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-s.shuttingDown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filter.AgentID != 0 && ev.AgentID != filter.AgentID {
				continue
			}
			if err := protocol.WriteFrame(conn, ev); err != nil {
				return // peer disconnected or write failed; drop the subscription
			}
		}
	}
}

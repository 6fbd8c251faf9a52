// Package cli implements the harness client: a cobra command tree that
// dials the daemon's unix socket, sends one protocol.Request, and prints
// the result (§4.4, §6's conceptual CLI surface).
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/speckit/harness/internal/paths"
	"github.com/speckit/harness/internal/protocol"
)

// dialTimeout bounds how long the client waits to connect to the daemon
// socket before reporting it as unreachable.
const dialTimeout = 3 * time.Second

// roundTrip sends one request to the daemon and returns its decoded
// response value, or an error (including the daemon's own reported error).
func roundTrip(op protocol.Op, args any) (json.RawMessage, error) {
	socketPath, err := paths.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("resolve daemon socket path: %w", err)
	}

	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to harness daemon at %s: %w", socketPath, err)
	}
	defer conn.Close()

	var rawArgs json.RawMessage
	if args != nil {
		rawArgs, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal request args: %w", err)
		}
	}

	if err := protocol.WriteFrame(conn, protocol.Request{Op: op, Args: rawArgs}); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp protocol.Response
	if err := protocol.ReadFrame(bufio.NewReader(conn), &resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp.Value, nil
}

// subscribeConn dials the daemon and issues a subscribe request, optionally
// filtered to one agent (agentID == 0 means "every agent"), returning the
// live connection for the caller to stream EventFrames from.
func subscribeConn(agentID int64) (net.Conn, error) {
	socketPath, err := paths.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("resolve daemon socket path: %w", err)
	}
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to harness daemon at %s: %w", socketPath, err)
	}

	var rawArgs json.RawMessage
	if agentID != 0 {
		rawArgs, err = json.Marshal(protocol.AgentIDArgs{AgentID: agentID})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("marshal subscribe filter: %w", err)
		}
	}
	if err := protocol.WriteFrame(conn, protocol.Request{Op: protocol.OpSubscribe, Args: rawArgs}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe request: %w", err)
	}
	return conn, nil
}

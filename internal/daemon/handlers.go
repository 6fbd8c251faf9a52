package daemon

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/speckit/harness/internal/protocol"
)

// dispatch routes one non-streaming Request to the matching Daemon method
// and wraps the result as a Response (§4.4's seven ops, minus subscribe
// which the Server handles separately as a push stream).
func dispatch(d *Daemon, req protocol.Request) protocol.Response {
	switch req.Op {
	case protocol.OpStart:
		var args protocol.StartArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return protocol.Err(err)
		}
		rec, err := d.Start(args)
		return respond(rec, err)

	case protocol.OpList:
		return mustRespond(d.List())

	case protocol.OpStatus:
		var args protocol.AgentIDArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return protocol.Err(err)
		}
		rec, err := d.Status(args.AgentID)
		return respond(rec, err)

	case protocol.OpStop:
		var args protocol.AgentIDArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return protocol.Err(err)
		}
		if err := d.Stop(args.AgentID); err != nil {
			return protocol.Err(err)
		}
		return mustRespond(nil)

	case protocol.OpRemove:
		var args protocol.AgentIDArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return protocol.Err(err)
		}
		if err := d.Remove(args.AgentID); err != nil {
			return protocol.Err(err)
		}
		return mustRespond(nil)

	case protocol.OpResolveCheckpoint:
		var args protocol.ResolveCheckpointArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return protocol.Err(err)
		}
		cp, err := d.ResolveCheckpoint(args)
		return respond(cp, err)

	default:
		return protocol.Err(fmt.Errorf("unknown op %q", req.Op))
	}
}

func decodeArgs(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return errors.New("missing required args")
	}
	return json.Unmarshal(raw, out)
}

func respond(value any, err error) protocol.Response {
	if err != nil {
		return protocol.Err(err)
	}
	return mustRespond(value)
}

// mustRespond marshals value into a Response, falling back to an error
// Response in the (unreachable in practice, since every value here is a
// plain struct) case that marshaling itself fails.
func mustRespond(value any) protocol.Response {
	resp, err := protocol.OK(value)
	if err != nil {
		return protocol.Err(err)
	}
	return resp
}

// Package client implements the thin-client side of the daemon protocol:
// dial a running rdcd, send one JSON-RPC line, and optionally read back a
// fixed-length binary tail.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bananasjim/rdc/internal/protocol"
	"github.com/bananasjim/rdc/internal/transport"
)

// ErrUnreachable is returned when the daemon cannot be dialed at all.
var ErrUnreachable = errors.New("client: daemon unreachable")

// Client talks to one daemon over a single, one-shot TCP connection per
// call.
type Client struct {
	Addr    string
	Token   string
	Timeout time.Duration
}

// New returns a Client dialing addr with token for authentication. The
// default 30s timeout (§4.7) bounds the whole exchange — dial, write,
// and read — not just the dial.
func New(addr, token string) *Client {
	return &Client{Addr: addr, Token: token, Timeout: 30 * time.Second}
}

var nextID = 1

// dial connects to the daemon and sets a deadline covering the rest of
// the exchange (the write and the read), so c.Timeout bounds the whole
// call rather than just the connection attempt.
func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", c.Addr, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return conn, nil
}

// Send issues req and decodes the JSON result, returning a protocol.Error
// as a Go error if the daemon reports one.
func (c *Client) Send(req protocol.Request) (map[string]interface{}, error) {
	result, _, err := c.sendRaw(req, false)
	return result, err
}

// SendBinary issues req, then reads the "_binary_size" bytes the daemon
// promised on success, returning them alongside the decoded result.
func (c *Client) SendBinary(req protocol.Request) (map[string]interface{}, []byte, error) {
	return c.sendRaw(req, true)
}

func (c *Client) sendRaw(req protocol.Request, wantBinary bool) (map[string]interface{}, []byte, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, nil, err
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	if err := transport.WriteLine(conn, data); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	r := transport.NewReader(conn)
	line, err := transport.ReadLine(r, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if line == "" {
		return nil, nil, fmt.Errorf("%w: connection closed with no response", ErrUnreachable)
	}

	var resp protocol.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, nil, fmt.Errorf("client: malformed response: %w", err)
	}
	if resp.Error != nil {
		return nil, nil, resp.Error
	}

	result, _ := resp.Result.(map[string]interface{})

	var tail []byte
	if wantBinary {
		size := 0
		if n, ok := result["_binary_size"].(float64); ok {
			size = int(n)
		}
		tail, err = transport.ReadExact(r, size)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
	}

	return result, tail, nil
}

// NextID returns a monotonically increasing request id for callers that
// don't track their own sequence (the CLI, mostly — a single daemon
// connection per call needs no correlation beyond "most recent").
func NextID() int {
	id := nextID
	nextID++
	return id
}

// Ping sends the one unauthenticated liveness probe.
func (c *Client) Ping() error {
	_, err := c.Send(protocol.PingRequest(c.Token, NextID()))
	return err
}

// Status retrieves the daemon's current capture/eid state.
func (c *Client) Status() (map[string]interface{}, error) {
	return c.Send(protocol.StatusRequest(c.Token, NextID()))
}

// Shutdown asks the daemon to stop serving after this response.
func (c *Client) Shutdown() error {
	_, err := c.Send(protocol.ShutdownRequest(c.Token, NextID()))
	return err
}

// Goto moves the replay cursor to eid.
func (c *Client) Goto(eid int) error {
	_, err := c.Send(protocol.GotoRequest(c.Token, NextID(), eid))
	return err
}

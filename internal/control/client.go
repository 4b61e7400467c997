package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
)

// Client is a short-lived connection to a running Server's Unix socket,
// used by the CLI's status/console/reload subcommands.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	enc     *json.Encoder
}

// Dial connects to the control socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", path, err)
	}
	return &Client{conn: conn, scanner: bufio.NewScanner(conn), enc: json.NewEncoder(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes req and reads back the matching Response. If req.RequestID
// is unset, Send assigns a fresh one before writing.
func (c *Client) Send(req Request) (Response, error) {
	if req.RequestID == "" {
		req.RequestID = newRequestID()
	}
	if err := c.enc.Encode(req); err != nil {
		return Response{}, fmt.Errorf("control: writing request: %w", err)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("control: reading response: %w", err)
		}
		return Response{}, fmt.Errorf("control: connection closed without a response")
	}
	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("control: decoding response: %w", err)
	}
	return resp, nil
}

// Status is a convenience wrapper for the status op.
func (c *Client) Status() ([]WorkerStatus, error) {
	resp, err := c.Send(Request{Op: OpStatus})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("control: %s", resp.Error)
	}
	return resp.Status, nil
}

// Reload asks the running instance to re-read its config file immediately.
func (c *Client) Reload() error {
	resp, err := c.Send(Request{Op: OpReload})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("control: %s", resp.Error)
	}
	return nil
}

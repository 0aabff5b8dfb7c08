package client

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/neighborhoods/VarnishAdmin/protocol"
)

// State describes the varnishd child process as reported by `status`.
type State int

const (
	// StateUnreachable means the status command failed or its output
	// could not be interpreted.
	StateUnreachable State = iota

	StateStopped
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}

	return "unreachable"
}

var childState = regexp.MustCompile(`Child in state (\w+)`)

// Purge invalidates every cached object matching a ban expression,
// e.g. `obj.http.x-host ~ example.com`.
func (c *Client) Purge(expression string) ([]byte, error) {
	return c.execute(c.commands.Purge+" "+expression, protocol.CodeOK)
}

// PurgeURL invalidates the cached objects for a single URL.
func (c *Client) PurgeURL(url string) ([]byte, error) {
	return c.execute(c.commands.PurgeURL+" "+url, protocol.CodeOK)
}

// Ping checks that the console still answers.
func (c *Client) Ping() ([]byte, error) {
	return c.execute(c.commands.Ping, protocol.CodeOK)
}

// ChildState reports the state of the varnishd child process. Failures
// of the underlying command fold into StateUnreachable; this operation
// never errors.
func (c *Client) ChildState() State {
	body, err := c.execute(c.commands.Status, protocol.CodeOK)
	if err != nil {
		c.log.Debug("Status command failed", zap.Error(err))
		return StateUnreachable
	}

	m := childState.FindSubmatch(body)
	if m == nil {
		return StateUnreachable
	}

	if string(m[1]) == "running" {
		return StateRunning
	}

	return StateStopped
}

// Status reports whether the varnishd child is running. It is a
// convenience over ChildState and likewise never errors.
func (c *Client) Status() bool {
	return c.ChildState() == StateRunning
}

// Start starts the cache process. Starting a child that already runs
// is a no-op.
func (c *Client) Start() error {
	if c.Status() {
		c.log.Info("varnishd child is already running")
		return nil
	}

	_, err := c.execute(c.commands.Start, protocol.CodeOK)

	return err
}

// Stop stops the cache process. Stopping a child that is not running
// is a no-op.
func (c *Client) Stop() error {
	if !c.Status() {
		c.log.Info("varnishd child is already stopped")
		return nil
	}

	_, err := c.execute(c.commands.Stop, protocol.CodeOK)

	return err
}

// Quit politely ends the session, then closes the transport whether or
// not varnishd acknowledged. varnishd answers quit with a 500.
func (c *Client) Quit() error {
	if _, err := c.execute(c.commands.Quit, protocol.CodeClose); err != nil {
		c.log.Debug("Quit command failed", zap.Error(err))
	}

	return c.Close()
}

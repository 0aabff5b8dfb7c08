package client

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neighborhoods/VarnishAdmin/protocol"
	"github.com/neighborhoods/VarnishAdmin/transport"
)

var (
	ErrSecretRequired       = errors.New("varnishd demands authentication but no secret is configured")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrBadBanner            = errors.New("bad response from server")
	ErrClosed               = errors.New("client is closed")
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 6082

	// challengeSize is the length of the random token at the start of a
	// 107 banner.
	challengeSize = 32
)

// CommandError reports a command whose response code did not match the
// expected one.
type CommandError struct {
	Command string
	Code    int
	Body    []byte
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command '%s' returned %d:\n%s",
		e.Command, e.Code, quoteBody(e.Body))
}

// quoteBody prefixes every body line with "> " so diagnostics stand
// apart from the surrounding error text.
func quoteBody(body []byte) string {
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}

	return strings.Join(lines, "\n")
}

type Options struct {
	// Host of the varnishd admin console. A client with an empty host
	// never touches the network: every command is a silent no-op. Use
	// DefaultHost to talk to a local varnishd.
	Host string

	// Port of the admin console, DefaultPort when zero
	Port int

	// Version is the varnishd major version, e.g. "3" or "4.1". Empty
	// resolves to the lowest supported version.
	Version string

	// Secret is the shared admin secret, required only when varnishd was
	// started with -S. It is never logged.
	Secret string

	// Timeout bounds the dial and each individual read
	Timeout time.Duration

	Log *zap.Logger

	// Transport overrides the TCP transport. Tests script one.
	Transport transport.Transport
}

// Client drives one varnishd admin console session. It owns exactly
// one transport and one command set for its lifetime.
//
// A Client is not safe for concurrent use: the console answers one
// command at a time, so callers running commands from several
// goroutines must serialize them.
type Client struct {
	host     string
	secret   string
	commands protocol.CommandSet

	transport transport.Transport
	reader    *bufio.Reader

	authenticated bool
	closed        bool

	log *zap.Logger
}

// New builds a Client from Options. All protocol-relevant state is
// fixed here; nothing about the client can be reconfigured afterwards.
func New(options Options) (*Client, error) {
	version, err := protocol.ParseVersion(options.Version)
	if err != nil {
		return nil, err
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	port := options.Port
	if port == 0 {
		port = DefaultPort
	}

	tr := options.Transport
	if tr == nil {
		tr = transport.NewTCP(transport.Options{
			Host:    options.Host,
			Port:    port,
			Timeout: options.Timeout,
			Log:     log.Named("transport"),
		})
	}

	return &Client{
		host:      options.Host,
		secret:    options.Secret,
		commands:  protocol.Commands(version),
		transport: tr,
		log:       log,
	}, nil
}

// Connect opens the transport and performs the banner exchange,
// authenticating when varnishd demands it. It returns the banner.
func (c *Client) Connect() (string, error) {
	if c.closed {
		return "", ErrClosed
	}

	if err := c.transport.Connect(); err != nil {
		return "", err
	}

	c.reader = bufio.NewReader(c.transport)

	return c.handshake()
}

// handshake reads the banner varnishd sends on connect. A 200 greeting
// needs nothing further; a 107 challenge must be answered before any
// other command will be accepted.
func (c *Client) handshake() (string, error) {
	resp, err := protocol.ReadResponse(c.reader)
	if err != nil {
		return "", err
	}

	switch resp.Code {
	case protocol.CodeOK:
		return string(resp.Body), nil

	case protocol.CodeAuthRequired:
		if c.secret == "" {
			return "", ErrSecretRequired
		}

		if err := c.authenticate(resp.Body); err != nil {
			return "", fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}

		c.authenticated = true
		c.log.Debug("Authenticated with varnishd")

		return string(resp.Body), nil
	}

	return "", fmt.Errorf("%w: code %d", ErrBadBanner, resp.Code)
}

// authenticate answers a 107 challenge. The digest is the hex SHA-256
// of challenge + '\n' + secret + challenge + '\n', where the challenge
// is the first 32 bytes of the banner.
func (c *Client) authenticate(banner []byte) error {
	challenge := banner
	if len(challenge) > challengeSize {
		challenge = challenge[:challengeSize]
	}

	h := sha256.New()
	h.Write(challenge)
	h.Write([]byte("\n"))
	h.Write([]byte(c.secret))
	h.Write(challenge)
	h.Write([]byte("\n"))

	digest := hex.EncodeToString(h.Sum(nil))

	_, err := c.execute(c.commands.Auth+" "+digest, protocol.CodeOK)

	return err
}

// execute writes one command and validates the response code against
// the expected one, returning the raw body on a match.
//
// A client with no host configured is a deliberate no-op, so the
// best-effort operations can run before any connection exists.
func (c *Client) execute(command string, expected int) ([]byte, error) {
	if c.host == "" {
		return nil, nil
	}

	if c.closed {
		return nil, ErrClosed
	}

	if c.reader == nil {
		return nil, transport.ErrNotConnected
	}

	if err := protocol.WriteCommand(c.transport, command); err != nil {
		return nil, err
	}

	resp, err := protocol.ReadResponse(c.reader)
	if err != nil {
		return nil, err
	}

	if resp.Code != expected {
		return nil, &CommandError{Command: command, Code: resp.Code, Body: resp.Body}
	}

	return resp.Body, nil
}

// Authenticated returns true if the server challenged on connect and
// the challenge was satisfied.
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// Close closes the transport. Calling Close more than once is a no-op;
// a closed client is done for good.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true

	return c.transport.Close()
}

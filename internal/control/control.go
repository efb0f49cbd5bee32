package control

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/t4weyhryjtey/tor-router/internal/sentinel"
)

// ErrClosed is returned by operations on a closed connection.
const ErrClosed = sentinel.Error("control connection closed")

// statusOK is the tor control protocol success status.
const statusOK = 250

// Conn is a connection to a tor control port. All commands are serialized by
// an internal mutex: the control protocol is strictly request/reply, so
// interleaving requests from multiple goroutines would corrupt reply framing.
type Conn struct {
	mu   sync.Mutex
	conn net.Conn
	text *textproto.Conn
}

// Dial connects to the control port at addr (host:port). The context bounds
// the dial; it does not bound subsequent commands (use the per-command
// context arguments for that).
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial control port %s: %w", addr, err)
	}
	return &Conn{conn: conn, text: textproto.NewConn(conn)}, nil
}

// Reply is a parsed control protocol reply: the final status code and one
// text line per reply line, in order, with status prefixes stripped.
type Reply struct {
	Status int
	Lines  []string
}

// roundTrip sends one command line and reads the complete reply.
// The caller must hold c.mu. Deadlines are derived from ctx.
func (c *Conn) roundTrip(ctx context.Context, format string, args ...any) (Reply, error) {
	if c.text == nil {
		return Reply{}, ErrClosed
	}

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return Reply{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	if err := c.text.PrintfLine(format, args...); err != nil {
		return Reply{}, fmt.Errorf("send command: %w", err)
	}

	reply, err := c.readReply()
	if err != nil {
		return Reply{}, err
	}
	if reply.Status != statusOK {
		msg := ""
		if len(reply.Lines) > 0 {
			msg = reply.Lines[len(reply.Lines)-1]
		}
		return reply, fmt.Errorf("control reply %d: %s", reply.Status, msg)
	}
	return reply, nil
}

// readReply reads reply lines until the final one. Replies take the form
//
//	250-Key=Value        (continuation)
//	250+Key=             (data block, terminated by a lone ".")
//	250 OK               (final line)
//
// The status of the final line is the reply status. Mixed-status replies are
// not produced by tor for the commands this client sends.
func (c *Conn) readReply() (Reply, error) {
	var reply Reply
	for {
		line, err := c.text.ReadLine()
		if err != nil {
			return Reply{}, fmt.Errorf("read reply: %w", err)
		}
		if len(line) < 4 {
			return Reply{}, fmt.Errorf("malformed reply line %q", line)
		}

		status, err := strconv.Atoi(line[:3])
		if err != nil {
			return Reply{}, fmt.Errorf("malformed reply status in %q", line)
		}
		sep := line[3]
		text := line[4:]

		switch sep {
		case '-':
			reply.Lines = append(reply.Lines, text)
		case '+':
			reply.Lines = append(reply.Lines, text)
			// Data block: accumulate until the terminating ".".
			for {
				dataLine, err := c.text.ReadLine()
				if err != nil {
					return Reply{}, fmt.Errorf("read data block: %w", err)
				}
				if dataLine == "." {
					break
				}
				reply.Lines = append(reply.Lines, strings.TrimPrefix(dataLine, "."))
			}
		case ' ':
			reply.Lines = append(reply.Lines, text)
			reply.Status = status
			return reply, nil
		default:
			return Reply{}, fmt.Errorf("malformed reply separator in %q", line)
		}
	}
}

// Authenticate performs AUTHENTICATE with the given password. An empty
// password authenticates against a control port configured without
// authentication (the default for pool-managed instances, which bind the
// control port to the loopback interface only).
func (c *Conn) Authenticate(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.roundTrip(ctx, "AUTHENTICATE %s", quote(password))
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// GetConf retrieves the current values of a configuration keyword. Keywords
// may carry multiple values (e.g., multiple SocksPort lines); all are
// returned in reply order. A keyword set to its default with no value text
// yields an empty string for that line.
func (c *Conn) GetConf(ctx context.Context, keyword string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.roundTrip(ctx, "GETCONF %s", keyword)
	if err != nil {
		return nil, fmt.Errorf("getconf %s: %w", keyword, err)
	}

	values := make([]string, 0, len(reply.Lines))
	for _, line := range reply.Lines {
		// Lines are "Keyword=Value" or bare "Keyword" (default value).
		if i := strings.IndexByte(line, '='); i >= 0 {
			values = append(values, line[i+1:])
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

// SetConf sets a configuration keyword to the given value.
func (c *Conn) SetConf(ctx context.Context, keyword, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.roundTrip(ctx, "SETCONF %s=%s", keyword, quote(value)); err != nil {
		return fmt.Errorf("setconf %s: %w", keyword, err)
	}
	return nil
}

// Signal sends a control signal by name (e.g., "NEWNYM", "RELOAD", "DEBUG").
func (c *Conn) Signal(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.roundTrip(ctx, "SIGNAL %s", name); err != nil {
		return fmt.Errorf("signal %s: %w", name, err)
	}
	return nil
}

// Close sends QUIT (best effort) and closes the underlying connection.
// Safe to call multiple times.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.text == nil {
		return nil
	}
	// Best-effort QUIT; the daemon closes the connection either way.
	_ = c.conn.SetDeadline(time.Now().Add(time.Second))
	_ = c.text.PrintfLine("QUIT")

	err := c.conn.Close()
	c.text = nil
	c.conn = nil
	if err != nil {
		return fmt.Errorf("close control connection: %w", err)
	}
	return nil
}

// quote wraps s in double quotes with backslash escaping, the QuotedString
// form from the control protocol grammar.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

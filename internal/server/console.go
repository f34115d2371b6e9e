package server

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

const whoCommand = "/who"

// Console reads administrative commands from the server's own control input.
type Console struct {
	in      io.Reader
	out     io.Writer
	server  *Server
	timeout time.Duration
	logger  *slog.Logger
}

// NewConsole creates a Console that controls srv. timeout bounds the wait
// for sessions after a console-triggered shutdown.
func NewConsole(in io.Reader, out io.Writer, srv *Server, timeout time.Duration) *Console {
	return &Console{
		in:      in,
		out:     out,
		server:  srv,
		timeout: timeout,
		logger:  srv.logger,
	}
}

// Run processes commands until the quit command or the end of input.
// Reaching the end of input does not stop the server.
func (c *Console) Run() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		switch cmd := strings.TrimSpace(scanner.Text()); cmd {
		case "":
			continue
		case QuitCommand:
			c.logger.Info("shutdown requested from console")
			if err := c.server.Shutdown(c.timeout); err != nil {
				c.logger.Warn("console shutdown incomplete", "err", err)
			}
			return
		case whoCommand:
			c.printWho()
		default:
			fmt.Fprintf(c.out, "unknown command %q (available: %s, %s)\n", cmd, whoCommand, QuitCommand)
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn("console input failed", "err", err)
	}
}

func (c *Console) printWho() {
	names := c.server.Registry().Nicknames()
	if len(names) == 0 {
		fmt.Fprintln(c.out, "no users connected")
		return
	}
	fmt.Fprintf(c.out, "connected (%d): %s\n", len(names), strings.Join(names, ", "))
}

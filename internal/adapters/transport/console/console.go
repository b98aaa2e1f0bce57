// Package console is a terminal chat transport for local use.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/example/fleetbot/internal/adapters/transport"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// Console reads messages line by line from in and writes bot replies to out.
// Every line is sent as the same sender.
type Console struct {
	in       io.Reader
	out      io.Writer
	senderID string

	mu     sync.Mutex
	prompt *color.Color
	reply  *color.Color
	errc   *color.Color
}

var _ secondary.MessageSender = (*Console)(nil)

// New creates a console transport.
func New(in io.Reader, out io.Writer, senderID string) *Console {
	return &Console{
		in:       in,
		out:      out,
		senderID: senderID,
		prompt:   color.New(color.FgHiBlack),
		reply:    color.New(color.FgCyan),
		errc:     color.New(color.FgRed),
	}
}

// Send prints a reply.
func (c *Console) Send(ctx context.Context, recipientID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.reply.Fprintf(c.out, "bot> %s\n", text)
	return err
}

// Run reads lines until EOF, "quit" or "exit", handling each synchronously.
func (c *Console) Run(ctx context.Context, d transport.Dispatcher) error {
	scanner := bufio.NewScanner(c.in)
	n := 0
	for {
		c.mu.Lock()
		c.prompt.Fprint(c.out, "you> ")
		c.mu.Unlock()

		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		line := scanner.Text()
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "quit", "exit":
			return nil
		case "":
			continue
		}

		n++
		reply, err := d.Dispatch(ctx, primary.InboundMessage{
			ID:         fmt.Sprintf("console-%d", n),
			SenderID:   c.senderID,
			Text:       line,
			ReceivedAt: time.Now(),
		})
		if err != nil {
			c.mu.Lock()
			c.errc.Fprintf(c.out, "error: %v\n", err)
			c.mu.Unlock()
			continue
		}
		for _, text := range reply.Texts {
			if err := c.Send(ctx, c.senderID, text); err != nil {
				return err
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

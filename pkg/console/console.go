// Package console provides an interactive admin REPL for operating a
// running swarmbus instance: publishing ad-hoc outbound replies and system
// events without a channel adapter in the loop.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sipeed/picoclaw/pkg/bus"
)

// Console reads admin commands from an interactive line editor and applies
// them against router.
type Console struct {
	router *bus.Router
	rl     *readline.Instance
}

// New builds a Console backed by a readline instance on os.Stdin/Stdout.
func New(router *bus.Router) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "swarmbus> ",
		HistoryFile: "",
	})
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return &Console{router: router, rl: rl}, nil
}

// Close releases the underlying line editor.
func (c *Console) Close() error { return c.rl.Close() }

// Run reads commands until Close is called or the input stream ends.
func (c *Console) Run() error {
	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return nil
			}
			return err
		}
		if reply, err := ExecuteLine(c.router, line); err != nil {
			fmt.Fprintf(c.rl.Stderr(), "error: %v\n", err)
		} else if reply != "" {
			fmt.Fprintln(c.rl.Stdout(), reply)
		}
	}
}

// ExecuteLine parses and applies a single admin command line. Recognized
// forms:
//
//	send <channel> <chat-id> <text...>   publish an OutboundMessage
//	event <type> <source>                publish a SystemEvent
//
// It is split out from Run so command parsing can be tested without a real
// terminal.
func ExecuteLine(router *bus.Router, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	switch fields[0] {
	case "send":
		if len(fields) < 4 {
			return "", fmt.Errorf("usage: send <channel> <chat-id> <text...>")
		}
		msg := bus.OutboundMessage{
			Channel: fields[1],
			ChatID:  fields[2],
			Content: strings.Join(fields[3:], " "),
		}
		if err := router.PublishOutbound(msg); err != nil {
			return "", err
		}
		return fmt.Sprintf("sent to %s/%s", msg.Channel, msg.ChatID), nil

	case "event":
		if len(fields) < 3 {
			return "", fmt.Errorf("usage: event <type> <source>")
		}
		evt := bus.SystemEvent{Type: fields[1], Source: fields[2]}
		if err := router.PublishSystem(evt); err != nil {
			return "", err
		}
		return fmt.Sprintf("published %s from %s", evt.Type, evt.Source), nil

	default:
		return "", fmt.Errorf("unknown command %q", fields[0])
	}
}

package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ShellCommand reads ledger commands line by line against one runtime
type ShellCommand struct {
	ledger  *LedgerCommand
	scanner *bufio.Scanner
	out     io.Writer
}

// NewShellCommand creates a shell that reads from in and writes to config.Out
func NewShellCommand(config Config, runtime *Runtime, in io.Reader) *ShellCommand {
	ledger := NewLedgerCommand(config, runtime)
	return &ShellCommand{
		ledger:  ledger,
		scanner: bufio.NewScanner(in),
		out:     ledger.config.Out,
	}
}

// Execute runs the session until quit or end of input
func (c *ShellCommand) Execute(ctx context.Context) error {
	fmt.Fprintln(c.out, "=== labledger shell ===")
	fmt.Fprintln(c.out, "Type 'help' for available commands")
	fmt.Fprintln(c.out)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(c.out, "ledger> ")
		if !c.scanner.Scan() {
			break
		}

		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		done, err := c.processCommand(ctx, line)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		if done {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}
		fmt.Fprintln(c.out)
	}
	return c.scanner.Err()
}

func (c *ShellCommand) processCommand(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(line)
	switch parts[0] {
	case "help", "h":
		c.ledger.showHelp()
	case "quit", "q", "exit":
		return true, nil
	case "serve", "shell", "seed":
		return false, fmt.Errorf("%s is not available inside the shell", parts[0])
	default:
		return false, c.ledger.run(ctx, parts)
	}
	return false, nil
}

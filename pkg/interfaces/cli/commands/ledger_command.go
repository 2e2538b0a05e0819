package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/interfaces/cli/output"
)

// Config holds configuration for a one-shot ledger command
type Config struct {
	Args     []string
	Format   string
	Operator string
	Fix      bool
	Verbose  bool
	Help     bool
	Out      io.Writer
}

// LedgerCommand runs one ledger operation and prints its result
type LedgerCommand struct {
	config  Config
	runtime *Runtime
}

// NewLedgerCommand creates a ledger command bound to runtime
func NewLedgerCommand(config Config, runtime *Runtime) *LedgerCommand {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.Format == "" {
		config.Format = "text"
	}
	return &LedgerCommand{config: config, runtime: runtime}
}

// Execute runs the operation named by the first argument
func (c *LedgerCommand) Execute(ctx context.Context) error {
	if c.config.Help || len(c.config.Args) == 0 {
		c.showHelp()
		return nil
	}
	return c.run(ctx, c.config.Args)
}

func (c *LedgerCommand) run(ctx context.Context, args []string) error {
	svc := c.runtime.Service
	name, rest := args[0], args[1:]

	var (
		result interface{}
		err    error
	)
	switch name {
	case "explode":
		if len(rest) != 2 {
			return fmt.Errorf("usage: explode <version-id> <target-qty>")
		}
		id, err := parseID("version-id", rest[0])
		if err != nil {
			return err
		}
		target, err := parseQty(rest[1])
		if err != nil {
			return err
		}
		result, err = svc.Explode(ctx, id, target)
		if err != nil {
			return err
		}
	case "issue":
		id, err := oneID("issue <order-id>", "order-id", rest)
		if err != nil {
			return err
		}
		result, err = svc.GenerateIssue(ctx, id)
		if err != nil {
			return err
		}
	case "post":
		id, err := oneID("post <issue-id>", "issue-id", rest)
		if err != nil {
			return err
		}
		result, err = svc.PostIssue(ctx, id, c.config.Operator)
		if err != nil {
			return err
		}
	case "cancel":
		id, err := oneID("cancel <issue-id>", "issue-id", rest)
		if err != nil {
			return err
		}
		result, err = svc.CancelIssue(ctx, id, c.config.Operator)
		if err != nil {
			return err
		}
	case "finish":
		id, err := oneID("finish <order-id>", "order-id", rest)
		if err != nil {
			return err
		}
		result, err = svc.FinishOrder(ctx, id, c.config.Operator)
		if err != nil {
			return err
		}
	case "repair":
		result, err = svc.RepairIssues(ctx)
	case "reconcile":
		fix := c.config.Fix || (len(rest) == 1 && rest[0] == "fix")
		result, err = svc.Reconcile(ctx, fix)
	case "balance", "history":
		if len(rest) != 2 {
			return fmt.Errorf("usage: %s <raw_material|product> <item-id>", name)
		}
		ref, err := parseRef(rest[0], rest[1])
		if err != nil {
			return err
		}
		if name == "balance" {
			result, err = svc.Balance(ctx, ref)
		} else {
			result, err = svc.History(ctx, ref)
		}
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command: %s (use -help for available commands)", name)
	}
	if err != nil {
		return err
	}

	return output.Generate(c.config.Out, result, output.Config{
		Format:  c.config.Format,
		Verbose: c.config.Verbose,
	})
}

func parseID(name, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, entities.Invalid(name, "must be a positive integer, got %q", raw)
	}
	return id, nil
}

func oneID(usage, name string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return parseID(name, args[0])
}

func parseQty(raw string) (entities.Quantity, error) {
	q, err := decimal.NewFromString(raw)
	if err != nil {
		return entities.Quantity{}, entities.Invalid("quantity", "not a number: %q", raw)
	}
	return q, nil
}

func parseRef(itemType, rawID string) (entities.ItemRef, error) {
	t := entities.ItemType(itemType)
	if !t.Valid() {
		return entities.ItemRef{}, entities.Invalid("type", "unknown item type %q", itemType)
	}
	id, err := parseID("item-id", rawID)
	if err != nil {
		return entities.ItemRef{}, err
	}
	return entities.ItemRef{Type: t, ID: id}, nil
}

func (c *LedgerCommand) showHelp() {
	fmt.Fprint(c.config.Out, `labledger - formulation lab BOM and inventory ledger

USAGE:
    labledger <command> [flags] [arguments]

COMMANDS:
    serve                          Start the HTTP API
    shell                          Run commands interactively against one ledger
    seed                           Fill an empty ledger with a generated lab
    explode <version> <qty>        Scale a BOM version to a target output quantity
    issue <order>                  Generate or refresh the draft issue of an order
    post <issue>                   Post a draft issue, consuming its materials
    cancel <issue>                 Cancel a posted issue, returning its materials
    finish <order>                 Credit the finished product of an order
    repair                         Refresh every draft issue from its order
    reconcile [fix]                Compare cached stock with the ledger
    balance <type> <id>            Show one item's stock next to its ledger sum
    history <type> <id>            List one item's ledger entries

FLAGS:
    -format <fmt>       Output format: text, json (default: text)
    -operator <name>    Operator recorded on ledger entries
    -fix                Rewrite drifted stock during reconcile
    -verbose            Print ledger entries with results
    -help               Show this help message

Flags go before positional arguments, e.g. labledger post -operator alice 3.
Storage, locking and logging are configured through the environment or .env.
`)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/config"
	"github.com/vsinha/labledger/pkg/infrastructure/logging"
	"github.com/vsinha/labledger/pkg/interfaces/cli/commands"
)

type executor interface {
	Execute(ctx context.Context) error
}

func main() {
	name := "help"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	// Command line flags, parsed after the command name
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var (
		format    = fs.String("format", "text", "Output format: text, json")
		operator  = fs.String("operator", "", "Operator recorded on ledger entries")
		fix       = fs.Bool("fix", false, "Rewrite drifted stock during reconcile")
		verbose   = fs.Bool("verbose", false, "Enable verbose output")
		help      = fs.Bool("help", false, "Show help message")
		materials = fs.Int("materials", 12, "seed: number of raw materials")
		recipes   = fs.Int("recipes", 4, "seed: number of recipes")
		maxLines  = fs.Int("max-lines", 4, "seed: maximum material lines per recipe")
		stock     = fs.Float64("stock", 1.0, "seed: opening stock multiplier")
		seed      = fs.Int64("seed", 0, "seed: random seed (0 draws one from the clock)")
	)
	if len(os.Args) > 2 {
		_ = fs.Parse(os.Args[2:])
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, name, fs.Args(), cfg, logger, commandFlags{
		format:    *format,
		operator:  *operator,
		fix:       *fix,
		verbose:   *verbose,
		help:      *help || name == "help" || name == "-help" || name == "--help",
		materials: *materials,
		recipes:   *recipes,
		maxLines:  *maxLines,
		stock:     *stock,
		seed:      *seed,
	}); err != nil {
		logger.Debug("command failed", zap.String("command", name), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type commandFlags struct {
	format    string
	operator  string
	fix       bool
	verbose   bool
	help      bool
	materials int
	recipes   int
	maxLines  int
	stock     float64
	seed      int64
}

func run(ctx context.Context, name string, args []string, cfg *config.Config, logger *zap.Logger, f commandFlags) error {
	rt, err := commands.NewRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ledgerConfig := commands.Config{
		Args:     append([]string{name}, args...),
		Format:   f.format,
		Operator: f.operator,
		Fix:      f.fix,
		Verbose:  f.verbose,
		Help:     f.help,
	}

	var cmd executor
	switch {
	case f.help:
		cmd = commands.NewLedgerCommand(ledgerConfig, rt)
	case name == "serve":
		cmd = commands.NewServeCommand(rt)
	case name == "shell":
		cmd = commands.NewShellCommand(ledgerConfig, rt, os.Stdin)
	case name == "seed":
		cmd = commands.NewSeedCommand(commands.SeedConfig{
			Materials: f.materials,
			Recipes:   f.recipes,
			MaxLines:  f.maxLines,
			Stock:     f.stock,
			Seed:      f.seed,
			Operator:  f.operator,
			Verbose:   f.verbose,
		}, rt)
	default:
		cmd = commands.NewLedgerCommand(ledgerConfig, rt)
	}
	return cmd.Execute(ctx)
}

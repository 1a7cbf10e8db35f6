package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"raffle-escrow/internal/clock"
	"raffle-escrow/internal/config"
	"raffle-escrow/internal/host"
	"raffle-escrow/internal/logger"
	"raffle-escrow/internal/raffle"
	"raffle-escrow/internal/storage"

	"go.uber.org/zap"
)

// app is everything a command needs once configuration is loaded.
type app struct {
	config  *config.Config
	store   *storage.SqliteStorage
	runtime *host.Runtime
	program *raffle.Program
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"keygen":  {"generate a new signer seed", runKeygen},
	"fund":    {"credit lamports to an address", runFund},
	"init":    {"open a raffle for the signer", runInit},
	"buy":     {"buy one ticket", runBuy},
	"draw":    {"draw the winner of the signer's raffle", runDraw},
	"claim":   {"claim the prize with the winning ticket", runClaim},
	"close":   {"close raffles of one or more creators", runClose},
	"migrate": {"rewrite a legacy raffle record", runMigrate},
	"show":    {"print one raffle or list them all", runShow},
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) < 2 {
		usage()
		return 2
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		return 2
	}

	if err := execute(ctx, cmd, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		logger.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, cmd command, args []string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	if err := logger.Initialize(cfg.Logger()); err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd.run(ctx, a, args)
}

func newApp(cfg *config.Config) (*app, error) {
	programID, err := cfg.ProgramID()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSqliteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	runtime := host.NewRuntime(
		store,
		clock.NewSystem(cfg.Clock.StartSlot, cfg.Clock.SlotDuration),
		cfg.RentSchedule(),
		programID,
	)

	logger.Debug("program ready",
		zap.String("program id", programID.String()),
		zap.String("database", cfg.Database.Path),
	)

	return &app{
		config:  cfg,
		store:   store,
		runtime: runtime,
		program: raffle.NewProgram(runtime),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("cannot close storage", zap.Error(err))
	}
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: raffle <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].usage)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/api"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/cli"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/iocli"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:3000", "Server URL")
	dbPath := flag.String("db", "natours-client.db", "Path to local session cache")
	passwd := flag.String("passwd", "", "Password (not recommended, use "+cli.PasswordEnv+")")
	passwdFile := flag.String("passwd-file", "", "Path to file containing the password")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	c := cli.New(api.NewClient(*serverURL), boltStorage, stdio, cli.Passwords{
		FromFile: *passwdFile,
		FromArgs: *passwd,
	})

	runErr := c.Run(ctx, args[0], args[1:])

	if err := boltStorage.Close(); err != nil {
		slog.Error("failed to close database", slog.Any("error", err))
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		if errors.Is(runErr, cli.ErrUnknownCommand) {
			cli.PrintUsage(stdio)
		}
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Natours Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

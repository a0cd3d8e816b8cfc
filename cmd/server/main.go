package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/iocli"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	command, args := "serve", os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "serve", "create-admin", "version":
			command, args = args[0], args[1:]
		}
	}

	var err error
	switch command {
	case "version":
		printVersion()
	case "create-admin":
		err = runCreateAdmin(args)
	default:
		err = runServe(args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "Show version information")

	cfg, err := config.Load(fs, args, os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *showVersion {
		printVersion()
		return nil
	}

	logger, err := server.NewLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// runCreateAdmin opens an administrator account. Signup only ever creates
// regular users, so the first admin is bootstrapped here.
func runCreateAdmin(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	email := fs.String("email", "", "Administrator email")
	name := fs.String("name", "Admin", "Administrator name")

	cfg, err := config.Load(fs, args, os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	logger, err := server.NewLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	term := iocli.NewStdio()
	password, err := term.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := term.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	ctx := context.Background()
	srv, err := server.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = srv.Close()
	}()

	admin, err := srv.Service().CreateAdmin(ctx, *name, *email, password)
	if err != nil {
		return err
	}

	term.Printf("✓ Administrator %s <%s> created (id %s)\n", admin.Name, admin.Email, admin.ID)
	return nil
}

func printVersion() {
	fmt.Printf("Natours Auth Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/xiy/taskbridge/internal/admin"
	"github.com/xiy/taskbridge/internal/bridge"
	"github.com/xiy/taskbridge/internal/chat"
	"github.com/xiy/taskbridge/internal/config"
	"github.com/xiy/taskbridge/internal/llm"
	"github.com/xiy/taskbridge/internal/mcp"
	"github.com/xiy/taskbridge/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "http":
		if err := runHTTP(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "admin":
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Println("taskbridge v0.1.0")
	default:
		usage()
		os.Exit(2)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "config/taskbridge.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportCaller: false, Prefix: cfg.ServerName})
	setLogLevel(logger, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.OpenMongo(ctx, cfg.MongoURI, cfg.DatabaseName, logger)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	b := bridge.New(st, logger, cfg.DefaultLimit)
	server := mcp.NewServer(b, logger, st, cfg.ServerName)
	logger.Info("starting MCP stdio server", "db", cfg.DatabaseName)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runHTTP(args []string) error {
	fs := flag.NewFlagSet("http", flag.ContinueOnError)
	configPath := fs.String("config", "config/taskbridge.yaml", "Path to config file")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportCaller: false, Prefix: cfg.ServerName})
	setLogLevel(logger, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.OpenMongo(ctx, cfg.MongoURI, cfg.DatabaseName, logger)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	client, err := llm.NewClient(llm.Config{
		Backend: cfg.Provider.Backend,
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.ProviderAPIKey(),
	})
	if err != nil {
		return err
	}

	b := bridge.New(st, logger, cfg.DefaultLimit)
	server := chat.NewServer(b, client, st, st, logger)

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	logger.Info("starting HTTP chat bridge",
		"addr", cfg.HTTPAddr,
		"provider", client.Backend(),
		"model", client.Model(),
	)
	return server.Serve(ctx, listener)
}

func runAdmin(args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	configPath := fs.String("config", "config/taskbridge.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.OpenMongo(ctx, cfg.MongoURI, cfg.DatabaseName, logger)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	return admin.Run(ctx, st)
}

func setLogLevel(logger *log.Logger, level string) {
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

func usage() {
	fmt.Print(`taskbridge

Usage:
  taskbridge serve [--config path]          MCP stdio server
  taskbridge http  [--config path] [--addr] HTTP function-calling bridge
  taskbridge admin [--config path]          admin dashboard
  taskbridge version
`)
}

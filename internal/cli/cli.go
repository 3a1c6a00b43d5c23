// Package cli runs the static file servers from the command line
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/matthewmueller/devserve"
	"github.com/matthewmueller/socket"
	"github.com/spf13/pflag"
)

type Config struct {
	Host string
	Port int
}

// Addr to listen on
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Parse the --host and --port flags
func Parse(name string, args []string, stderr io.Writer) (*Config, error) {
	cfg := new(Config)
	fset := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.StringVar(&cfg.Host, "host", "0.0.0.0", "host to bind to")
	fset.IntVar(&cfg.Port, "port", 8000, "port to serve on")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		return nil, fmt.Errorf("cli: unexpected arguments %q", fset.Args())
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("cli: invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// Handler serves dir, with livereload when live is set
func Handler(log *slog.Logger, dir string, live bool) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	if !live {
		return fileServer
	}
	return devserve.New(log, os.DirFS(dir)).Middleware(fileServer)
}

// Serve the handler until the context is cancelled. Shutting down because of
// cancellation is not an error.
func Serve(ctx context.Context, log *slog.Logger, addr string, handler http.Handler) error {
	err := socket.ListenAndServe(ctx, addr, handler)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		log.Debug("cli: shut down", "addr", addr)
		return nil
	}
	return fmt.Errorf("cli: unable to serve %s: %w", addr, err)
}

// Main runs a server in the current directory and returns the exit code
func Main(name string, args []string, live bool) int {
	log := slog.Default()
	cfg, err := Parse(name, args, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Printf("Serving on http://%s\n", cfg.Addr())
	if err := Serve(ctx, log, cfg.Addr(), Handler(log, ".", live)); err != nil {
		log.Error("cli: server failed", "error", err)
		return 1
	}
	return 0
}

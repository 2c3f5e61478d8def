package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wtnb75/devserve"
)

var listen = devserve.Listen

// run validates the root before binding anything, then serves it from the
// working directory until ctx is done.
func run(ctx context.Context, cfg *devserve.Config, stdout io.Writer) error {
	root, err := devserve.ValidateRoot(cfg.RootDir)
	if err != nil {
		return err
	}
	if err := os.Chdir(root); err != nil {
		return err
	}

	listener, err := listen(cfg.Host, cfg.FirstPort, cfg.LastPort)
	if err != nil {
		return err
	}
	defer listener.Close()

	devserve.Banner(stdout, devserve.Port(listener), root)
	return devserve.Run(ctx, listener, devserve.New(os.DirFS(".")))
}

// realMain serves <dir of anchor>/../public, so build into a sibling of
// public: go build -o bin/ ./cmd/devserver
func realMain(anchor string) error {
	if resolved, err := filepath.EvalSymlinks(anchor); err == nil {
		anchor = resolved
	}
	cfg := devserve.CreateConfig()
	cfg.RootDir = devserve.PublicDir(anchor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg, os.Stdout)
}

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	exe, err := os.Executable()
	if err == nil {
		err = realMain(exe)
	}
	if err != nil {
		fmt.Println("Error:", err)
		slog.Error("server error", "error", err)
	}
	os.Exit(exitCode(err))
}

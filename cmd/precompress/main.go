package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/wtnb75/devserve"
)

func realMain(args []string) error {
	cmpr := flag.NewFlagSet("compress", flag.ExitOnError)
	cmprdir := cmpr.String("dir", "", "target directory")
	cmprdry := cmpr.Bool("dry-run", false, "dry run")
	minsize := cmpr.Int64("min-size", 128, "minimum file size to compress")
	maxsize := cmpr.Int64("max-size", 10*1024*1024, "maximum file size to compress")
	gzipcmd := cmpr.String("gzip-cmd", "", "gzip command")
	brotlicmd := cmpr.String("brotli-cmd", "", "brotli command")
	zstdcmd := cmpr.String("zstd-cmd", "", "zstd command")
	cleanup := flag.NewFlagSet("cleanup", flag.ExitOnError)
	cleanold := cleanup.Bool("old", false, "remove only old compressed files")
	cleandir := cleanup.String("dir", "", "target directory")
	cleandry := cleanup.Bool("dry-run", false, "dry run")

	if len(args) == 0 {
		return errors.New("subcommand is required: compress or cleanup")
	}

	switch args[0] {
	case "compress":
		if err := cmpr.Parse(args[1:]); err != nil {
			return err
		}
		if *cmprdir == "" {
			return errors.New("dir is required")
		}
		p := devserve.NewPrecompressor(*cmprdir)
		p.DryRun = *cmprdry
		p.MinSize = *minsize
		p.MaxSize = *maxsize
		for enc, cmdline := range map[string]string{"gzip": *gzipcmd, "br": *brotlicmd, "zstd": *zstdcmd} {
			if cmdline == "" {
				continue
			}
			if err := p.SetCommand(enc, cmdline); err != nil {
				return err
			}
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return p.Compress(ctx)
	case "cleanup":
		if err := cleanup.Parse(args[1:]); err != nil {
			return err
		}
		if *cleandir == "" {
			return errors.New("dir is required")
		}
		p := devserve.NewPrecompressor(*cleandir)
		p.DryRun = *cleandry
		return p.Cleanup(*cleanold)
	}
	return fmt.Errorf("unknown subcommand: %s", args[0])
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	if err := realMain(os.Args[1:]); err != nil {
		slog.Error("precompress failed", "error", err)
		os.Exit(1)
	}
}

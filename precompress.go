package devserve

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/buildkite/shellwords"
)

// compress:
//   - compress all files in tree, keep original
//   - check timestamp
//   - gzip -k9nf, brotli -k9nf, zstd -k19f
//   - remove if not smaller than original
//
// cleanup:
//   - remove all compressed files in tree

type Compressor struct {
	Encoding string
	Ext      string
	Cmd      []string
}

func DefaultCompressors() []Compressor {
	return []Compressor{
		{Encoding: "gzip", Ext: ".gz", Cmd: []string{"gzip", "-k9nf"}},
		{Encoding: "br", Ext: ".br", Cmd: []string{"brotli", "-k9nf"}},
		{Encoding: "zstd", Ext: ".zst", Cmd: []string{"zstd", "-k19f"}},
	}
}

// Precompressor maintains the sidecar files that Handler serves to clients
// accepting a content encoding.
type Precompressor struct {
	Dir         string
	Compressors []Compressor
	MinSize     int64
	MaxSize     int64
	DryRun      bool

	fs fs.StatFS
}

func NewPrecompressor(dir string) *Precompressor {
	return &Precompressor{
		Dir:         dir,
		Compressors: DefaultCompressors(),
		MinSize:     128,
		MaxSize:     10 * 1024 * 1024,
		fs:          os.DirFS(dir).(fs.StatFS),
	}
}

// SetCommand replaces the command line used for encoding. The file to
// compress is appended as the last argument.
func (p *Precompressor) SetCommand(encoding, cmdline string) error {
	args, err := shellwords.Split(cmdline)
	if err != nil {
		return fmt.Errorf("parse command %q: %w", cmdline, err)
	}
	if len(args) == 0 {
		return fmt.Errorf("empty command for %s", encoding)
	}
	for i := range p.Compressors {
		if p.Compressors[i].Encoding == encoding {
			p.Compressors[i].Cmd = args
			return nil
		}
	}
	return fmt.Errorf("unknown encoding %s", encoding)
}

func (p *Precompressor) compressFile(ctx context.Context, path string) error {
	origst, err := p.fs.Stat(path)
	if err != nil {
		slog.Error("stat failed in compressFile", "path", path, "error", err)
		return err
	}
	absfn := filepath.Join(p.Dir, path)
	for _, v := range p.Compressors {
		outfn := path + v.Ext
		if st, err := p.fs.Stat(outfn); err == nil && !st.ModTime().Before(origst.ModTime()) {
			slog.Info("skip compressing, up-to-date", "path", path, "compressed", outfn)
			continue
		}
		cmd := append(slices.Clone(v.Cmd), absfn)
		if p.DryRun {
			slog.Info("dry-run: would compress file", "path", path, "cmd", cmd)
			continue
		}
		if out, err := exec.CommandContext(ctx, cmd[0], cmd[1:]...).CombinedOutput(); err != nil {
			slog.Error("compress failed", "path", path, "cmd", cmd, "output", string(out))
			return fmt.Errorf("%s %s: %w", v.Encoding, path, err)
		}
		st, err := p.fs.Stat(outfn)
		if err != nil {
			slog.Error("stat compressed file failed", "path", outfn, "error", err)
			return err
		}
		if st.Size() >= origst.Size() {
			slog.Info("compressed file is larger than original, removing", "path", path, "compressed", outfn, "original_size", origst.Size(), "compressed_size", st.Size())
			if err := os.Remove(filepath.Join(p.Dir, outfn)); err != nil {
				slog.Error("remove compressed file failed", "path", outfn, "error", err)
				return err
			}
			continue
		}
		slog.Info("compressed file created", "path", path, "compressed", outfn, "original_size", origst.Size(), "compressed_size", st.Size())
	}
	return nil
}

func (p *Precompressor) cleanupFile(path string, oldOnly bool) error {
	origst, err := p.fs.Stat(path)
	if err != nil {
		slog.Error("stat failed", "path", path, "error", err)
		return err
	}
	for _, v := range sortorder {
		outfn := path + v.ext
		st, err := p.fs.Stat(outfn)
		if err != nil {
			continue
		}
		if oldOnly && !st.ModTime().Before(origst.ModTime()) {
			slog.Debug("skip cleanup, up-to-date", "path", path, "compressed", outfn)
			continue
		}
		if p.DryRun {
			slog.Info("dry-run: would cleanup file", "path", path, "compressed", outfn)
			continue
		}
		if err := os.Remove(filepath.Join(p.Dir, outfn)); err != nil {
			slog.Error("remove compressed file failed", "path", outfn, "error", err)
			return err
		}
		slog.Info("removed compressed file", "path", path, "compressed", outfn)
	}
	return nil
}

// walk calls fn for every regular file under Dir that is not a sidecar.
func (p *Precompressor) walk(fn func(path string, info fs.FileInfo) error) error {
	return fs.WalkDir(p.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || isSidecar(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, info)
	})
}

// Compress creates sidecars for every file within the size bounds.
func (p *Precompressor) Compress(ctx context.Context) error {
	return p.walk(func(path string, info fs.FileInfo) error {
		if info.Size() < p.MinSize {
			slog.Debug("skip compressing, too small", "path", path, "size", info.Size(), "min_size", p.MinSize)
			return nil
		}
		if p.MaxSize > 0 && info.Size() > p.MaxSize {
			slog.Info("skip compressing, too large", "path", path, "size", info.Size(), "max_size", p.MaxSize)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.compressFile(ctx, path)
	})
}

// Cleanup removes sidecars; with oldOnly only those older than their original.
func (p *Precompressor) Cleanup(oldOnly bool) error {
	return p.walk(func(path string, _ fs.FileInfo) error {
		return p.cleanupFile(path, oldOnly)
	})
}

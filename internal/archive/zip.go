package archive

import (
	"archive/zip"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"univsrg/internal/errs"
	"univsrg/internal/fileutil"
)

// Extract unpacks the zip at src into dest and returns the slash-separated
// relative paths of the regular files written, sorted.
func Extract(ctx context.Context, src, dest string) ([]string, error) {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "archive", "open", src, err)
	}
	defer reader.Close()

	var written []string
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := fileutil.NormalizeRel(file.Name)
		if rel == "" {
			continue
		}
		target, err := fileutil.SafeJoin(dest, rel)
		if err != nil {
			return nil, errs.Wrap(errs.ErrIO, "archive", "extract", file.Name, err)
		}
		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, errs.Wrap(errs.ErrIO, "archive", "extract", rel, err)
			}
			continue
		case !mode.IsRegular():
			// Symlinks and devices are never materialised.
			continue
		}
		if err := extractFile(file, target); err != nil {
			return nil, errs.Wrap(errs.ErrIO, "archive", "extract", rel, err)
		}
		written = append(written, rel)
	}
	sort.Strings(written)
	return written, nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := file.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Options controls archive creation.
type Options struct {
	// Level is the deflate level; flate.DefaultCompression when zero-valued
	// options are used.
	Level int
}

// DefaultOptions returns deflate at the default level.
func DefaultOptions() Options {
	return Options{Level: flate.DefaultCompression}
}

// Create archives every regular file under srcDir into dest using deflate.
// Entry names are the slash-separated paths relative to srcDir. dest is
// written through a temporary sibling and renamed into place.
func Create(ctx context.Context, srcDir, dest string, opts Options) (int, error) {
	if opts.Level < flate.HuffmanOnly || opts.Level > flate.BestCompression {
		return 0, errs.Wrap(errs.ErrConfiguration, "archive", "create", fmt.Sprintf("deflate level %d out of range", opts.Level), nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, errs.Wrap(errs.ErrIO, "archive", "create", "destination directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.partial")
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, "archive", "create", dest, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, opts.Level)
	})

	count := 0
	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if err := addFile(zw, p, filepath.ToSlash(rel)); err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		count++
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return 0, walkErr
		}
		return 0, errs.Wrap(errs.ErrIO, "archive", "create", "add entries", walkErr)
	}
	if err := zw.Close(); err != nil {
		return 0, errs.Wrap(errs.ErrIO, "archive", "create", "finalize", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, errs.Wrap(errs.ErrIO, "archive", "create", "sync", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, errs.Wrap(errs.ErrIO, "archive", "create", "close", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, errs.Wrap(errs.ErrIO, "archive", "create", "rename into place", err)
	}
	committed = true
	return count, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}

// Package enginelog archives the spooled engine output that every run leaves
// inside its artifact directory. Engine logs compress extremely well and are
// only read during incident analysis, so they are stored compressed next to
// the backup set they belong to.
package enginelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/dbforge/xbak/pkg/plog"
)

// Archive compresses the engine log at logPath into a sibling file with the
// format's extension, then removes the plain log. The compressed file is
// written to a temp file first and renamed into place, so a crash never
// leaves a truncated archive behind. Returns the final archive path.
//
// With Format None the plain log is kept as is.
func Archive(logPath string, format Format) (string, error) {
	if format == None {
		return logPath, nil
	}

	ext, ok := extension[format]
	if !ok {
		return "", fmt.Errorf("cannot archive engine log: %s", format)
	}
	archivePath := logPath + ext

	src, err := os.Open(logPath)
	if err != nil {
		return "", fmt.Errorf("could not open engine log %s: %w", logPath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "xbak-log-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp archive: %w", err)
	}
	tempPath := tmp.Name()

	if err := compressTo(tmp, src, format); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close temp archive: %w", err)
	}

	if err := os.Rename(tempPath, archivePath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename temp archive to final path: %w", err)
	}

	if err := os.Remove(logPath); err != nil {
		// The archive is in place; a leftover plain log is only wasted space.
		plog.Warn("Could not remove plain engine log after archiving", "path", logPath, "error", err)
	}

	plog.Debug("Archived engine log", "path", archivePath, "format", format)
	return archivePath, nil
}

// compressTo streams src through the format's writer into dst.
func compressTo(dst io.Writer, src io.Reader, format Format) (retErr error) {
	var compressedWriter io.WriteCloser
	switch format {
	case Zstd:
		zstdWriter, err := zstd.NewWriter(dst)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		compressedWriter = zstdWriter
	case Gzip:
		pgzipWriter, err := pgzip.NewWriterLevel(dst, pgzip.DefaultCompression)
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
		compressedWriter = pgzipWriter
	default:
		return fmt.Errorf("cannot archive engine log: %s", format)
	}

	defer func() {
		if err := compressedWriter.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("compressed writer close failed: %w", err)
		}
	}()

	if _, err := io.Copy(compressedWriter, src); err != nil {
		return fmt.Errorf("failed to compress engine log: %w", err)
	}
	return nil
}

// Open returns a reader over an archived engine log, transparently
// decompressing based on the file extension. The caller must close it.
func Open(archivePath string) (io.ReadCloser, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("could not open archived engine log %s: %w", archivePath, err)
	}

	switch filepath.Ext(archivePath) {
	case ".gz":
		r, err := pgzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("could not read gzip engine log %s: %w", archivePath, err)
		}
		return &wrappedReadCloser{Reader: r, closers: []io.Closer{r, f}}, nil
	case ".zst":
		r, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("could not read zstd engine log %s: %w", archivePath, err)
		}
		return &wrappedReadCloser{Reader: r.IOReadCloser(), closers: []io.Closer{r.IOReadCloser(), f}}, nil
	default:
		return f, nil
	}
}

type wrappedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (w *wrappedReadCloser) Close() error {
	var firstErr error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

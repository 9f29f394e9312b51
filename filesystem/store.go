// Package filesystem provides a local directory blob store for itemgate.
// It writes atomically through temp files, computes SHA256-based etags and
// serves stored objects back under a configured public base URL.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarc03/itemgate"
)

// Store provides file system storage operations.
type Store struct {
	root          *os.Root
	publicBaseURL string
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
// Public URLs are built as <publicBaseURL>/<name>.
func NewFileStorage(root *os.Root, publicBaseURL string) (*Store, error) {
	if root == nil {
		return nil, errors.New("new file storage: root is required")
	}

	u, err := url.Parse(publicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("new file storage: invalid public base url %q", publicBaseURL)
	}

	return &Store{root: root, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Open opens a stored object for reading. Returns itemgate.ErrNotFound if the
// object does not exist or names a directory.
func (s *Store) Open(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(filepath.FromSlash(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, itemgate.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, itemgate.ErrNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content under name using a temp file and rename.
// It creates intermediate directories as needed and returns the number of
// bytes written and a SHA256-based etag. The content type is not recorded;
// Open callers derive it from the extension. The operation respects context
// cancellation.
func (s *Store) Write(ctx context.Context, name, contentType string, content io.Reader) (itemgate.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return itemgate.SaveResult{}, ctxErr
	}

	dest := filepath.FromSlash(name)

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return itemgate.SaveResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	written, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return itemgate.SaveResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return itemgate.SaveResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	if destDir := filepath.Dir(dest); destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return itemgate.SaveResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, dest); renameErr != nil {
		return itemgate.SaveResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true

	return itemgate.SaveResult{BytesWritten: written, Etag: hex.EncodeToString(h.Sum(nil))}, nil
}

// MakePublic returns the public URL of a stored object. Files under the root
// are always readable through the server, so only existence is checked.
func (s *Store) MakePublic(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := s.root.Stat(filepath.FromSlash(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", itemgate.ErrNotFound
		}
		return "", fmt.Errorf("could not stat file: %w", err)
	}

	return s.publicBaseURL + "/" + escapeName(name), nil
}

// Delete removes a file. Returns itemgate.ErrNotFound if the file does not exist.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(filepath.FromSlash(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return itemgate.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// ContentType guesses a MIME type from the object name's extension.
func (s *Store) ContentType(name string) string {
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

func escapeName(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

var ErrForeignURL = errors.New("url does not belong to this storage")

// LocalStorage writes attachments below Dir and serves them under BaseURL.
// Stored names are prefixed with a uuid so two uploads never collide.
type LocalStorage struct {
	dir     string
	baseURL string
}

var _ ports.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(dir string, baseURL string) *LocalStorage {
	return &LocalStorage{
		dir:     filepath.Clean(dir),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Upload(ctx context.Context, name string, body io.Reader, folder string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	if body == nil {
		return "", errors.New("file body is required")
	}

	cleanFolder, err := cleanSegment(folder)
	if err != nil {
		return "", err
	}
	base := sanitizeName(name)
	if base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	stored := uuid.NewString() + "-" + base

	targetDir := filepath.Join(s.dir, cleanFolder)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", errs.Wrapf(err, "create folder %s", targetDir)
	}

	target := filepath.Join(targetDir, stored)
	file, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errs.Wrapf(err, "create file %s", target)
	}
	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return "", errs.Wrapf(err, "write file %s", target)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(target)
		return "", errs.Wrapf(err, "close file %s", target)
	}

	publicURL := s.baseURL + "/" + path.Join(cleanFolder, url.PathEscape(stored))
	logging.Debug(ctx, "file stored",
		slog.String("component", "storage.local"),
		slog.String("name", base),
		slog.String("url", publicURL),
	)
	return publicURL, nil
}

func (s *LocalStorage) Delete(ctx context.Context, fileURL string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	target, err := s.pathFor(fileURL)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.Wrapf(err, "remove file %s", target)
	}
	return nil
}

// pathFor maps a public URL back to a file below dir.
func (s *LocalStorage) pathFor(fileURL string) (string, error) {
	rel, ok := strings.CutPrefix(fileURL, s.baseURL+"/")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrForeignURL, fileURL)
	}
	unescaped, err := url.PathUnescape(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrForeignURL, fileURL)
	}
	target := filepath.Join(s.dir, filepath.FromSlash(unescaped))
	if !strings.HasPrefix(target, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrForeignURL, fileURL)
	}
	return target, nil
}

func cleanSegment(folder string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(folder), "/")
	if trimmed == "" {
		return "general", nil
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("invalid folder %q", folder)
	}
	return cleaned, nil
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, base)
}

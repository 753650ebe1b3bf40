package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LocalUploader writes assets below a base directory of an afero
// filesystem and serves them under a public URL prefix.
type LocalUploader struct {
	fs            afero.Fs
	basePath      string
	publicBaseURL string
	logger        *zap.Logger
}

// NewLocalUploader creates the base directory if needed.
func NewLocalUploader(fs afero.Fs, basePath, publicBaseURL string, logger *zap.Logger) (*LocalUploader, error) {
	if err := fs.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	return &LocalUploader{
		fs:            fs,
		basePath:      basePath,
		publicBaseURL: publicBaseURL,
		logger:        logger.Named("uploads"),
	}, nil
}

func (u *LocalUploader) Upload(ctx context.Context, up Upload) (string, string, error) {
	key := ObjectKey(up.Kind, up.Filename)
	path := filepath.Join(u.basePath, filepath.FromSlash(key))

	if err := u.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := u.fs.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, contextReader{ctx: ctx, r: up.Body}); err != nil {
		_ = u.fs.Remove(path)
		return "", "", fmt.Errorf("failed to write file: %w", err)
	}

	u.logger.Debug("asset stored", zap.String("path", path))
	return joinURL(u.publicBaseURL, key), key, nil
}

func (u *LocalUploader) Delete(ctx context.Context, key string) error {
	path := filepath.Join(u.basePath, filepath.FromSlash(key))
	if err := u.fs.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Fs exposes the filesystem so the HTTP layer can serve stored assets.
func (u *LocalUploader) Fs() afero.Fs {
	return afero.NewBasePathFs(u.fs, u.basePath)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

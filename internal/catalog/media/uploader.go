package media

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Upload is one asset handed to an Uploader.
type Upload struct {
	// Kind groups objects, e.g. "thumbnails" or "videos".
	Kind        string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Uploader stores studio assets and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, u Upload) (url string, key string, err error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds a collision-free key that keeps the file extension.
func ObjectKey(kind, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return path.Join(kind, uuid.NewString()+ext)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// Package assets stores uploaded media and hands back durable URLs.
package assets

import (
	"context"

	"videotube/internal/model"
)

// Kind selects how an upload is processed and where it is stored.
type Kind string

const (
	KindAvatar    Kind = "avatars"
	KindCover     Kind = "covers"
	KindThumbnail Kind = "thumbnails"
	KindVideo     Kind = "videos"
)

// Host accepts a local file and returns a URL that outlives the request.
type Host interface {
	Upload(ctx context.Context, localPath string, kind Kind) (string, error)
	Delete(ctx context.Context, url string) error
}

var (
	ErrUnsupportedMedia = model.NewError(model.ErrValidation, "unsupported media type")
	ErrFileTooLarge     = model.NewError(model.ErrValidation, "file too large")
)

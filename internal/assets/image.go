package assets

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	AvatarSize      = 200
	CoverWidth      = 1280
	ThumbnailWidth  = 640
	jpegQuality     = 85
	MaxImageBytes   = 10 << 20
	MaxVideoBytes   = 512 << 20
	contentTypeJPEG = "image/jpeg"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

func sniff(data []byte) string {
	ct := http.DetectContentType(data[:min(len(data), 512)])
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}

// normalizeImage decodes an image and re-encodes it as JPEG sized for kind.
// Avatars are center-cropped squares; other kinds keep their aspect ratio.
func normalizeImage(data []byte, kind Kind) ([]byte, error) {
	if !allowedImageTypes[sniff(data)] {
		return nil, ErrUnsupportedMedia
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrUnsupportedMedia
	}

	switch kind {
	case KindAvatar:
		img = imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)
	case KindCover:
		if img.Bounds().Dx() > CoverWidth {
			img = imaging.Resize(img, CoverWidth, 0, imaging.Lanczos)
		}
	case KindThumbnail:
		if img.Bounds().Dx() > ThumbnailWidth {
			img = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

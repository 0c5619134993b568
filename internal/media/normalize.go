package media

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

const webpMime = "image/webp"

var (
	imageMimes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	videoMimes = []string{"video/mp4", "video/webm", "video/quicktime"}
)

// NormalizeOptions bounds image output.
type NormalizeOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Normalized is an upload ready for storage.
type Normalized struct {
	Data      []byte
	MimeType  string
	MediaType enums.MediaType
	Ext       string
}

// Normalize sniffs the payload, re-encodes images as WebP within the
// configured bounds and passes supported videos through unchanged.
func Normalize(data []byte, opts NormalizeOptions) (*Normalized, error) {
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	detected := mimetype.Detect(data)

	switch {
	case detected.Is("image/jpeg"), detected.Is("image/png"), detected.Is("image/webp"), detected.Is("image/gif"):
		return normalizeImage(data, opts)
	case detected.Is("video/mp4"), detected.Is("video/webm"), detected.Is("video/quicktime"):
		return &Normalized{
			Data:      data,
			MimeType:  detected.String(),
			MediaType: enums.MediaTypeVideo,
			Ext:       detected.Extension(),
		}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported file type %s", detected.String())).
		WithDetails(map[string]any{"allowed": append(append([]string{}, imageMimes...), videoMimes...)})
}

func normalizeImage(data []byte, opts NormalizeOptions) (*Normalized, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image could not be decoded")
	}

	bounds := img.Bounds()
	if opts.MaxWidth > 0 && opts.MaxHeight > 0 &&
		(bounds.Dx() > opts.MaxWidth || bounds.Dy() > opts.MaxHeight) {
		img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
	}

	quality := float32(opts.Quality)
	if quality <= 0 || quality > 100 {
		quality = 82
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode webp")
	}
	return &Normalized{
		Data:      buf.Bytes(),
		MimeType:  webpMime,
		MediaType: enums.MediaTypeImage,
		Ext:       ".webp",
	}, nil
}

// sanitizeFileName keeps a storage-safe base name without its extension.
func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	clean = strings.TrimSuffix(clean, path.Ext(clean))
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r > unicode.MaxASCII || unicode.IsControl(r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '.':
			b.WriteRune('-')
		}
	}
	result := strings.Trim(b.String(), "-_")
	if len(result) > 60 {
		result = result[:60]
	}
	return result
}

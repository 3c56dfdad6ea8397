package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultAllowedMIMEs lists the image types accepted when none are configured.
var DefaultAllowedMIMEs = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ImagePolicy constrains accepted images.
type ImagePolicy struct {
	MaxBytes     int64
	MaxDimension int
	AllowedMIMEs []string
}

// UnsupportedTypeError reports a payload whose detected type is not allowed.
type UnsupportedTypeError struct {
	MIME string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported image type %s", e.MIME)
}

// TooLargeError reports a payload over the size limit.
type TooLargeError struct {
	Size, Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image is %d bytes, limit is %d", e.Size, e.Limit)
}

// Check sniffs the real type of data and enforces the size and type limits.
// It returns the detected MIME type.
func (p ImagePolicy) Check(data []byte) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, ErrEmptyObject
	}
	if p.MaxBytes > 0 && int64(len(data)) > p.MaxBytes {
		return nil, &TooLargeError{Size: int64(len(data)), Limit: p.MaxBytes}
	}

	allowed := p.AllowedMIMEs
	if len(allowed) == 0 {
		allowed = DefaultAllowedMIMEs
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowed...) {
		return nil, &UnsupportedTypeError{MIME: mt.String()}
	}
	return mt, nil
}

// Prepare runs Check on obj and downscales jpeg and png images larger than
// MaxDimension.
func (p ImagePolicy) Prepare(obj Object) (Object, error) {
	mt, err := p.Check(obj.Data)
	if err != nil {
		return obj, err
	}
	obj.ContentType = mt.String()
	obj.Name = withExtension(obj.Name, mt.Extension())

	format, resizable := resizableFormat(mt)
	if !resizable || p.MaxDimension <= 0 {
		return obj, nil
	}

	img, err := imaging.Decode(bytes.NewReader(obj.Data), imaging.AutoOrientation(true))
	if err != nil {
		return obj, fmt.Errorf("decode image: %w", err)
	}
	if !exceeds(img.Bounds(), p.MaxDimension) {
		return obj, nil
	}

	resized := imaging.Fit(img, p.MaxDimension, p.MaxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return obj, fmt.Errorf("encode image: %w", err)
	}
	obj.Data = buf.Bytes()
	return obj, nil
}

func resizableFormat(mt *mimetype.MIME) (imaging.Format, bool) {
	switch {
	case mt.Is("image/jpeg"):
		return imaging.JPEG, true
	case mt.Is("image/png"):
		return imaging.PNG, true
	default:
		return 0, false
	}
}

func exceeds(b image.Rectangle, max int) bool {
	return b.Dx() > max || b.Dy() > max
}

func withExtension(name, ext string) string {
	if ext == "" {
		return name
	}
	if name == "" {
		return "image" + ext
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name + ext
}

// ProcessingUploader runs every object through an ImagePolicy before
// handing it to the next Uploader.
type ProcessingUploader struct {
	next   Uploader
	policy ImagePolicy
}

// NewProcessingUploader wraps next with policy.
func NewProcessingUploader(next Uploader, policy ImagePolicy) *ProcessingUploader {
	return &ProcessingUploader{next: next, policy: policy}
}

func (u *ProcessingUploader) Put(ctx context.Context, obj Object) (string, error) {
	prepared, err := u.policy.Prepare(obj)
	if err != nil {
		return "", err
	}
	return u.next.Put(ctx, prepared)
}

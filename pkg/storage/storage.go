// Package storage holds uploaded homework images, either on local disk or
// on a remote image host.
package storage

import (
	"context"
	"errors"
)

// Object is one image ready to be stored.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// ErrEmptyObject is returned when an object has no payload.
var ErrEmptyObject = errors.New("empty object")

package download

import (
	"archive/zip"
	"fmt"
	"io"
)

// ZipSink writes each image as an entry of a zip archive.
type ZipSink struct {
	zw *zip.Writer
}

// NewZipSink starts an archive on w. Close must be called to finish it.
func NewZipSink(w io.Writer) *ZipSink {
	return &ZipSink{zw: zip.NewWriter(w)}
}

func (s *ZipSink) Put(name string, r io.Reader) error {
	// Images are already compressed.
	fw, err := s.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("write zip entry: %w", err)
	}
	return nil
}

// Close writes the archive directory.
func (s *ZipSink) Close() error {
	return s.zw.Close()
}

// StreamSaver persists a named stream, such as storage.LocalStore.
type StreamSaver interface {
	SaveStream(name string, r io.Reader) (string, error)
}

// DirSink saves images through a StreamSaver.
type DirSink struct {
	store StreamSaver
}

// NewDirSink wraps store.
func NewDirSink(store StreamSaver) *DirSink {
	return &DirSink{store: store}
}

func (s *DirSink) Put(name string, r io.Reader) error {
	_, err := s.store.SaveStream(name, r)
	return err
}

// Package upload reads incoming image uploads into memory with a size limit.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("upload too large")

// Source is an upload held in memory, ready for ingestion.
type Source struct {
	Filename string
	Data     []byte
	MimeType string
}

// IsImage reports whether the sniffed content type is an image.
func (s *Source) IsImage() bool {
	return strings.HasPrefix(s.MimeType, "image/")
}

// Read consumes r up to maxBytes. A non-positive maxBytes disables the limit.
func Read(r io.Reader, filename string, maxBytes int64) (*Source, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return &Source{
		Filename: filepath.Base(filename),
		Data:     data,
		MimeType: detectMime(data),
	}, nil
}

// ReadFormFile opens a multipart file part and reads it with Read.
func ReadFormFile(fh *multipart.FileHeader, maxBytes int64) (*Source, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()
	return Read(f, fh.Filename, maxBytes)
}

// ReadFile loads a local file, as the CLI does.
func ReadFile(path string, maxBytes int64) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path, maxBytes)
}

func detectMime(data []byte) string {
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}

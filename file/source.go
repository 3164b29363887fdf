package file

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// Source supplies the content of an outgoing file.
type Source interface {
	Name() string
	Size() int64
	MediaType() string
	// ReadBase64 reads the whole content and returns it base64 encoded.
	ReadBase64(ctx context.Context) (string, error)
}

// PathSource reads a file from disk.
type PathSource struct {
	path      string
	size      int64
	mediaType string
}

// NewPathSource validates path and stats the file. The media type is
// inferred from the file extension.
func NewPathSource(path string) (*PathSource, error) {
	safePath, err := ValidatePath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(safePath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", safePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", safePath)
	}

	return &PathSource{
		path:      safePath,
		size:      info.Size(),
		mediaType: InferMediaType(filepath.Base(safePath), ""),
	}, nil
}

func (s *PathSource) Name() string      { return filepath.Base(s.path) }
func (s *PathSource) Size() int64       { return s.size }
func (s *PathSource) MediaType() string { return s.mediaType }

// ReadBase64 reads the file and encodes it.
func (s *PathSource) ReadBase64(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.path, err)
	}
	if int64(len(data)) != s.size {
		return "", fmt.Errorf("%s changed size while sending: %d != %d", s.path, len(data), s.size)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// BytesSource serves an in-memory file.
type BytesSource struct {
	name      string
	mediaType string
	data      []byte
}

// NewBytesSource wraps data. An empty mediaType is inferred from name.
func NewBytesSource(name, mediaType string, data []byte) *BytesSource {
	return &BytesSource{
		name:      name,
		mediaType: InferMediaType(name, mediaType),
		data:      data,
	}
}

func (s *BytesSource) Name() string      { return s.name }
func (s *BytesSource) Size() int64       { return int64(len(s.data)) }
func (s *BytesSource) MediaType() string { return s.mediaType }

// ReadBase64 encodes the wrapped bytes.
func (s *BytesSource) ReadBase64(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(s.data), nil
}

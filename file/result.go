package file

import (
	"encoding/base64"

	"golang.org/x/crypto/blake2b"
)

// File is a fully received file.
type File struct {
	Name      string
	MediaType string
	Data      []byte
	// Checksum is the BLAKE2b-256 digest of Data.
	Checksum [blake2b.Size256]byte
}

// NewFile builds a File from its name, media type and content.
func NewFile(name, mediaType string, data []byte) *File {
	return &File{
		Name:      name,
		MediaType: mediaType,
		Data:      data,
		Checksum:  blake2b.Sum256(data),
	}
}

// Size returns the content length in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// DataURL encodes the file as a base64 data URL.
func (f *File) DataURL() string {
	return "data:" + f.MediaType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

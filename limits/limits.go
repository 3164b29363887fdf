// Package limits provides centralized size limits for SI file transfers.
// This ensures consistent validation across negotiation, reassembly and sending.
package limits

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultBlockSize is the in-band bytestream block size used when the
	// caller does not request one (4096 bytes).
	DefaultBlockSize = 4096

	// MinBlockSize is the smallest block size that still carries one complete
	// base64 quantum (4 characters).
	MinBlockSize = 4

	// MaxBlockSize is the largest block size an in-band bytestream open can
	// announce. The block-size attribute is a 16-bit value.
	MaxBlockSize = 65535

	// MaxFileNameLength is the maximum allowed file name length in bytes.
	// The value (255) matches typical filesystem limits.
	MaxFileNameLength = 255

	// DefaultMaxFileSize disables the file size limit.
	DefaultMaxFileSize = 0
)

var (
	// ErrInvalidSize indicates a declared file size that is not a non-negative integer
	ErrInvalidSize = errors.New("invalid declared size")

	// ErrBlockSizeOutOfRange indicates a block size outside [MinBlockSize, MaxBlockSize]
	ErrBlockSizeOutOfRange = errors.New("block size out of range")

	// ErrFileTooLarge indicates a file exceeding the configured maximum size
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileNameTooLong indicates a file name exceeding MaxFileNameLength
	ErrFileNameTooLong = errors.New("file name too long")

	// ErrFileNameEmpty indicates an empty file name
	ErrFileNameEmpty = errors.New("empty file name")

	// ErrFileNameInvalid indicates a file name that is not valid UTF-8
	ErrFileNameInvalid = errors.New("file name is not valid UTF-8")
)

// ParseDeclaredSize parses the size attribute of a file offer.
// Surrounding whitespace is ignored; signs, fractions and overflow are rejected.
func ParseDeclaredSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidSize)
	}
	if trimmed[0] == '+' || trimmed[0] == '-' {
		return 0, fmt.Errorf("%w: %q is signed", ErrInvalidSize, s)
	}
	size, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidSize, s, err)
	}
	return size, nil
}

// ValidateBlockSize checks a negotiated block size against the protocol range.
func ValidateBlockSize(blockSize int) error {
	if blockSize < MinBlockSize || blockSize > MaxBlockSize {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrBlockSizeOutOfRange, blockSize, MinBlockSize, MaxBlockSize)
	}
	return nil
}

// ValidateFileSize checks size against maxSize. A maxSize of zero or less
// means unlimited.
func ValidateFileSize(size, maxSize int64) error {
	if size < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidSize, size)
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, size, maxSize)
	}
	return nil
}

// ValidateFileName checks that name is non-empty valid UTF-8 no longer than
// MaxFileNameLength bytes.
func ValidateFileName(name string) error {
	if name == "" {
		return ErrFileNameEmpty
	}
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("%w: %d bytes exceeds limit %d", ErrFileNameTooLong, len(name), MaxFileNameLength)
	}
	if !utf8.ValidString(name) {
		return ErrFileNameInvalid
	}
	return nil
}

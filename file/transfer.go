package file

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/opd-ai/sitransfer/interfaces"
)

var (
	// ErrUnknownSession indicates an event for a session that is not active.
	ErrUnknownSession = errors.New("unknown transfer session")

	// ErrSequenceMismatch indicates a chunk whose sequence number is not the expected one.
	ErrSequenceMismatch = errors.New("chunk sequence mismatch")

	// ErrMalformedChunk indicates a chunk payload that is not valid base64.
	ErrMalformedChunk = errors.New("malformed chunk payload")

	// ErrSizeOverflow indicates a chunk that would grow the file past its declared size.
	ErrSizeOverflow = errors.New("chunk exceeds declared size")

	// ErrSizeMismatch indicates a closed transfer whose received size differs from the declared size.
	ErrSizeMismatch = errors.New("received size does not match declared size")

	// ErrSessionExists indicates an offer reusing the id of an active session.
	ErrSessionExists = errors.New("transfer session already exists")

	// ErrOfferRejected indicates an incoming offer that was refused; it wraps the reason.
	ErrOfferRejected = errors.New("file offer rejected")

	// ErrNoTransport indicates a send attempted without a negotiator or chunk transport.
	ErrNoTransport = errors.New("no negotiator or chunk transport configured")

	// ErrNegotiationFailed indicates the peer rejected or never answered a file offer.
	ErrNegotiationFailed = errors.New("file transfer negotiation failed")

	// ErrTransportFailed indicates the bytestream failed to open, carry or acknowledge a chunk.
	ErrTransportFailed = errors.New("file transfer transport failed")

	// ErrUnexpectedEvent indicates a protocol event outside offer, open, data and close.
	ErrUnexpectedEvent = errors.New("unexpected protocol event")

	// ErrDirectoryTraversal indicates an attempt to access files outside allowed directories.
	ErrDirectoryTraversal = errors.New("path contains directory traversal")
)

// TransferDirection indicates whether a transfer is incoming or outgoing.
type TransferDirection uint8

const (
	// TransferDirectionIncoming represents a file being received.
	TransferDirectionIncoming TransferDirection = iota
	// TransferDirectionOutgoing represents a file being sent.
	TransferDirectionOutgoing
)

// String returns a readable name for the direction.
func (d TransferDirection) String() string {
	if d == TransferDirectionOutgoing {
		return "outgoing"
	}
	return "incoming"
}

// TransferState represents the current state of a file transfer.
type TransferState uint8

const (
	// TransferStateNegotiating indicates the offer or bytestream open is in flight.
	TransferStateNegotiating TransferState = iota
	// TransferStateTransferring indicates chunks are flowing.
	TransferStateTransferring
	// TransferStateCompleted indicates the transfer has finished successfully.
	TransferStateCompleted
	// TransferStateFailed indicates the transfer failed.
	TransferStateFailed
)

// String returns a readable name for the state.
func (s TransferState) String() string {
	switch s {
	case TransferStateNegotiating:
		return "negotiating"
	case TransferStateTransferring:
		return "transferring"
	case TransferStateCompleted:
		return "completed"
	case TransferStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is one file transfer tracked from offer to close.
//
// Sessions returned by the Reassembler are copies; mutating them has no
// effect on the active transfer.
type Session struct {
	SessionID         string
	Peer              string
	Direction         TransferDirection
	FileName          string
	DeclaredSize      int64
	DeclaredMediaType string
	State             TransferState
	Message           interfaces.MessageHandle
	StartTime         time.Time

	// Received accumulates decoded bytes of an incoming transfer.
	Received []byte
	// NextExpectedSeq is the only sequence number an incoming transfer accepts.
	NextExpectedSeq int

	// SentSeq is the next chunk an outgoing transfer sends.
	SentSeq int
	// BlockSize is the agreed bytestream block size of an outgoing transfer.
	BlockSize int

	lastChunkTime time.Time
	speed         float64 // bytes per second
}

// Speed returns the smoothed transfer speed in bytes per second.
func (s *Session) Speed() float64 {
	return s.speed
}

// Progress returns the received share of an incoming transfer as a percentage.
func (s *Session) Progress() float64 {
	if s.DeclaredSize == 0 {
		return 0.0
	}
	return float64(len(s.Received)) / float64(s.DeclaredSize) * 100.0
}

// snapshot copies the session so callers cannot reach the live buffer.
func (s *Session) snapshot() Session {
	c := *s
	if s.Received != nil {
		c.Received = append([]byte(nil), s.Received...)
	}
	return c
}

// updateSpeed folds a chunk of n bytes into the exponential moving average.
func (s *Session) updateSpeed(n int, now time.Time) {
	duration := now.Sub(s.lastChunkTime).Seconds()
	if duration > 0 {
		instant := float64(n) / duration
		if s.speed == 0 {
			s.speed = instant
		} else {
			s.speed = 0.7*s.speed + 0.3*instant
		}
	}
	s.lastChunkTime = now
}

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// ValidatePath checks if a file path is safe from directory traversal attacks.
// It returns the cleaned path or an error if the path contains traversal attempts.
func ValidatePath(path string) (string, error) {
	cleanedPath := filepath.Clean(path)

	for _, part := range strings.Split(filepath.ToSlash(cleanedPath), "/") {
		if part == ".." {
			return "", ErrDirectoryTraversal
		}
	}

	return cleanedPath, nil
}

package interfaces

import "context"

// INegotiator offers a file to a peer (SI file transfer negotiation).
type INegotiator interface {
	// Offer announces the file and blocks until the peer accepts or rejects
	// the session.
	Offer(ctx context.Context, peer, sessionID, fileName string, size int64, mediaType string) error
}

// IChunkTransport carries base64 chunks over an in-band bytestream.
type IChunkTransport interface {
	// Open opens the bytestream for sessionID requesting blockSize and returns
	// the block size the channel agreed to.
	Open(ctx context.Context, peer, sessionID string, blockSize int) (int, error)

	// SendChunk sends one base64 slice and returns once the peer acknowledged it.
	SendChunk(ctx context.Context, peer, sessionID string, seq int, data string) error

	// Close closes the bytestream.
	Close(ctx context.Context, peer, sessionID string) error
}

// IUserInterface receives attachment messages, progress and notices.
type IUserInterface interface {
	// PostMessage shows an attachment message. Posting an attachment whose UID
	// is already known replaces that message's attachment.
	PostMessage(attachment Attachment) MessageHandle

	// UpdateProgress reports current out of total for a message.
	UpdateProgress(handle MessageHandle, current, total int64)

	// MarkReceived flags a message as delivered.
	MarkReceived(handle MessageHandle)

	// PostSystemNotice shows a user-visible notice in the conversation with peer.
	PostSystemNotice(peer, text string)
}

// MessageHandle identifies a message posted to an IUserInterface.
type MessageHandle string

// MessageDirection tells whether a message was received, sent or generated locally.
type MessageDirection uint8

const (
	// DirectionIn marks messages received from the peer.
	DirectionIn MessageDirection = iota
	// DirectionOut marks messages sent to the peer.
	DirectionOut
	// DirectionSystem marks locally generated notices.
	DirectionSystem
)

// String returns a readable name for the direction.
func (d MessageDirection) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionSystem:
		return "sys"
	default:
		return "unknown"
	}
}

// Attachment describes a file attached to a chat message.
type Attachment struct {
	// UID is stable across updates of the same transfer. Empty lets the UI
	// assign one.
	UID       string
	Peer      string
	Direction MessageDirection
	Name      string
	MediaType string
	Size      int64
	// Data is a data URL of the content once it is available.
	Data string
}

// TransferConfig holds the settings shared by senders and receivers.
type TransferConfig struct {
	// BlockSize is requested when opening a bytestream.
	BlockSize int

	// MaxFileSize rejects larger offers and sends. Zero means unlimited.
	MaxFileSize int64
}

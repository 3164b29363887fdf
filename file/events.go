package file

// Event is a protocol event delivered to a Reassembler.
//
// The set of events is closed: Offer, ChunkOpen, ChunkData and ChunkClose.
type Event interface {
	// Session returns the transfer session the event belongs to.
	Session() string
	isEvent()
}

// Offer is an incoming SI file transfer offer.
type Offer struct {
	Peer      string
	SessionID string
	FileName  string
	// Size is the size attribute as received; it must parse as a
	// non-negative integer.
	Size      string
	MediaType string
}

// ChunkOpen announces that the peer opened the bytestream for a session.
type ChunkOpen struct {
	Peer      string
	SessionID string
	BlockSize int
}

// ChunkData carries one base64 chunk.
type ChunkData struct {
	Peer      string
	SessionID string
	Seq       int
	Data      string
}

// ChunkClose announces that the peer closed the bytestream for a session.
type ChunkClose struct {
	Peer      string
	SessionID string
}

func (e Offer) Session() string      { return e.SessionID }
func (e ChunkOpen) Session() string  { return e.SessionID }
func (e ChunkData) Session() string  { return e.SessionID }
func (e ChunkClose) Session() string { return e.SessionID }

func (Offer) isEvent()      {}
func (ChunkOpen) isEvent()  {}
func (ChunkData) isEvent()  {}
func (ChunkClose) isEvent() {}

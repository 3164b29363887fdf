// Package messaging implements an in-memory chat window that shows file
// transfer attachments, their progress and delivery state, and system notices.
//
// Example:
//
//	win := messaging.NewWindow()
//	client, _ := sitransfer.New(opts, win, negotiator, chunks)
//	for _, msg := range win.Messages() {
//	    fmt.Println(msg.Attachment().Name, msg.State())
//	}
package messaging

import (
	"sync"
	"time"

	"github.com/opd-ai/sitransfer/interfaces"
)

// MessageState represents the delivery state of an attachment message.
type MessageState uint8

const (
	// MessageStatePending means no bytes have moved yet.
	MessageStatePending MessageState = iota
	// MessageStateTransferring means progress has been reported.
	MessageStateTransferring
	// MessageStateReceived means the peer has the file, or we have it in full.
	MessageStateReceived
	// MessageStateFailed means the transfer failed.
	MessageStateFailed
)

// String returns a readable name for the state.
func (s MessageState) String() string {
	switch s {
	case MessageStatePending:
		return "pending"
	case MessageStateTransferring:
		return "transferring"
	case MessageStateReceived:
		return "received"
	case MessageStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeliveryCallback is called when a message's delivery state changes.
type DeliveryCallback func(message *Message, state MessageState)

// Message is one attachment message in a Window.
type Message struct {
	handle     interfaces.MessageHandle
	attachment interfaces.Attachment
	timestamp  time.Time
	state      MessageState
	current    int64
	total      int64

	deliveryCallback DeliveryCallback

	mu sync.Mutex
}

// NewMessage creates a pending message for attachment.
func NewMessage(handle interfaces.MessageHandle, attachment interfaces.Attachment) *Message {
	return &Message{
		handle:     handle,
		attachment: attachment,
		timestamp:  time.Now(),
		state:      MessageStatePending,
		total:      attachment.Size,
	}
}

// Handle returns the message's handle.
func (m *Message) Handle() interfaces.MessageHandle {
	return m.handle
}

// Timestamp returns when the message was first posted.
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}

// Attachment returns the current attachment.
func (m *Message) Attachment() interfaces.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachment
}

// State returns the delivery state.
func (m *Message) State() MessageState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Progress returns the last reported progress.
func (m *Message) Progress() (current, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.total
}

// OnDeliveryStateChange sets a callback for delivery state changes.
func (m *Message) OnDeliveryStateChange(callback DeliveryCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveryCallback = callback
}

// SetState updates the message's delivery state.
func (m *Message) SetState(state MessageState) {
	m.mu.Lock()
	if m.state == state {
		m.mu.Unlock()
		return
	}
	m.state = state
	callback := m.deliveryCallback
	m.mu.Unlock()

	if callback != nil {
		callback(m, state)
	}
}

func (m *Message) setProgress(current, total int64) {
	m.mu.Lock()
	m.current, m.total = current, total
	m.mu.Unlock()
}

// replace swaps in a newer attachment for the same transfer. An attachment
// carrying data means an incoming file arrived in full.
func (m *Message) replace(a interfaces.Attachment) {
	m.mu.Lock()
	m.attachment = a
	if a.Size > 0 {
		m.current, m.total = a.Size, a.Size
	}
	m.mu.Unlock()

	if a.Data != "" && a.Direction == interfaces.DirectionIn {
		m.SetState(MessageStateReceived)
	}
}

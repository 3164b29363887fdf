package messaging

import (
	"strconv"
	"sync"
	"time"

	"github.com/opd-ai/sitransfer/interfaces"
	"github.com/sirupsen/logrus"
)

// Notice is a system notice shown in a conversation.
type Notice struct {
	Peer      string
	Text      string
	Timestamp time.Time
}

// Window is an in-memory conversation view implementing
// interfaces.IUserInterface.
type Window struct {
	messages map[interfaces.MessageHandle]*Message
	order    []*Message
	notices  []Notice
	nextID   uint64

	mu sync.Mutex
}

// NewWindow creates an empty window.
func NewWindow() *Window {
	return &Window{
		messages: make(map[interfaces.MessageHandle]*Message),
		nextID:   1,
	}
}

// PostMessage adds an attachment message. An attachment whose UID matches an
// existing message replaces that message's attachment instead.
func (w *Window) PostMessage(a interfaces.Attachment) interfaces.MessageHandle {
	w.mu.Lock()
	if a.UID == "" {
		a.UID = "msg-" + strconv.FormatUint(w.nextID, 10)
		w.nextID++
	}
	handle := interfaces.MessageHandle(a.UID)

	if existing, ok := w.messages[handle]; ok {
		w.mu.Unlock()
		existing.replace(a)

		logrus.WithFields(logrus.Fields{
			"function":  "PostMessage",
			"handle":    handle,
			"file_name": a.Name,
			"has_data":  a.Data != "",
		}).Debug("Attachment message updated")
		return handle
	}

	msg := NewMessage(handle, a)
	w.messages[handle] = msg
	w.order = append(w.order, msg)
	w.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "PostMessage",
		"handle":     handle,
		"peer":       a.Peer,
		"direction":  a.Direction.String(),
		"file_name":  a.Name,
		"media_type": a.MediaType,
	}).Debug("Attachment message posted")
	return handle
}

// UpdateProgress records progress for the message behind handle.
func (w *Window) UpdateProgress(handle interfaces.MessageHandle, current, total int64) {
	msg := w.Message(handle)
	if msg == nil {
		logrus.WithFields(logrus.Fields{
			"function": "UpdateProgress",
			"handle":   handle,
		}).Warn("Progress for unknown message")
		return
	}
	msg.setProgress(current, total)
	if msg.State() == MessageStatePending {
		msg.SetState(MessageStateTransferring)
	}
}

// MarkReceived flags the message behind handle as received.
func (w *Window) MarkReceived(handle interfaces.MessageHandle) {
	msg := w.Message(handle)
	if msg == nil {
		logrus.WithFields(logrus.Fields{
			"function": "MarkReceived",
			"handle":   handle,
		}).Warn("Receipt for unknown message")
		return
	}
	msg.SetState(MessageStateReceived)
}

// MarkFailed flags the message behind handle as failed.
func (w *Window) MarkFailed(handle interfaces.MessageHandle) {
	if msg := w.Message(handle); msg != nil {
		msg.SetState(MessageStateFailed)
	}
}

// PostSystemNotice appends a notice.
func (w *Window) PostSystemNotice(peer, text string) {
	w.mu.Lock()
	w.notices = append(w.notices, Notice{Peer: peer, Text: text, Timestamp: time.Now()})
	w.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "PostSystemNotice",
		"peer":     peer,
		"text":     text,
	}).Info("System notice")
}

// Message returns the message behind handle, or nil.
func (w *Window) Message(handle interfaces.MessageHandle) *Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.messages[handle]
}

// Messages returns all messages in posting order.
func (w *Window) Messages() []*Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Message(nil), w.order...)
}

// Notices returns all system notices in posting order.
func (w *Window) Notices() []Notice {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Notice(nil), w.notices...)
}

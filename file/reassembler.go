package file

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/opd-ai/sitransfer/interfaces"
	"github.com/opd-ai/sitransfer/limits"
	"github.com/sirupsen/logrus"
)

// CompleteFunc is called once per finished session with its final snapshot.
// f is nil unless the session completed.
type CompleteFunc func(session Session, f *File, err error)

// Reassembler owns the table of active file transfers of one connection.
//
// Incoming transfers are driven by protocol events (Handle or the On*
// methods); outgoing transfers by SendFile. All methods are safe for
// concurrent use. UI callbacks run without the table lock held.
type Reassembler struct {
	ui         interfaces.IUserInterface
	negotiator interfaces.INegotiator
	chunks     interfaces.IChunkTransport
	config     interfaces.TransferConfig

	transfers        map[string]*Session
	timeProvider     TimeProvider
	completeCallback CompleteFunc
	mu               sync.Mutex
}

// NewReassembler creates a reassembler. negotiator and chunks are only needed
// for sending; a nil ui discards all UI output.
func NewReassembler(ui interfaces.IUserInterface, negotiator interfaces.INegotiator, chunks interfaces.IChunkTransport, config interfaces.TransferConfig) *Reassembler {
	if ui == nil {
		ui = nopUI{}
	}
	if config.BlockSize == 0 {
		config.BlockSize = limits.DefaultBlockSize
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewReassembler",
		"block_size":    config.BlockSize,
		"max_file_size": config.MaxFileSize,
	}).Info("Creating file transfer reassembler")

	return &Reassembler{
		ui:           ui,
		negotiator:   negotiator,
		chunks:       chunks,
		config:       config,
		transfers:    make(map[string]*Session),
		timeProvider: DefaultTimeProvider{},
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (r *Reassembler) SetTimeProvider(tp TimeProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeProvider = tp
}

// OnComplete sets a callback invoked when a session completes or fails.
func (r *Reassembler) OnComplete(callback CompleteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeCallback = callback
}

// Session returns a snapshot of an active session.
func (r *Reassembler) Session(sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.transfers[sessionID]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// ActiveSessions returns snapshots of all active sessions.
func (r *Reassembler) ActiveSessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]Session, 0, len(r.transfers))
	for _, s := range r.transfers {
		sessions = append(sessions, s.snapshot())
	}
	return sessions
}

// Handle dispatches a protocol event. A refused offer (bad size or name, too
// large, duplicate session id) is returned wrapping ErrOfferRejected so the
// negotiation layer can decline it. Bookkeeping failures on open, data and
// close (unknown session, out of order or malformed chunks, size mismatches)
// are logged and absorbed. An event outside the known set is returned
// wrapping ErrUnexpectedEvent.
func (r *Reassembler) Handle(ev Event) error {
	var err error
	switch e := normalizeEvent(ev).(type) {
	case Offer:
		if err := r.OnFileOffer(e.Peer, e.SessionID, e.FileName, e.Size, e.MediaType); err != nil {
			return fmt.Errorf("%w: %w", ErrOfferRejected, err)
		}
		return nil
	case ChunkOpen:
		err = r.OnChunkOpen(e.SessionID)
	case ChunkData:
		err = r.OnChunkData(e.SessionID, e.Seq, e.Data)
	case ChunkClose:
		err = r.OnChunkClose(e.SessionID)
	default:
		logrus.WithFields(logrus.Fields{
			"function":   "Handle",
			"event_type": fmt.Sprintf("%T", ev),
		}).Error("Unexpected protocol event")
		return fmt.Errorf("%w: %T", ErrUnexpectedEvent, ev)
	}

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Handle",
			"event_type": fmt.Sprintf("%T", ev),
			"error":      err.Error(),
		}).Debug("Protocol event absorbed")
	}
	return nil
}

// normalizeEvent dereferences pointer events so Handle accepts both forms.
func normalizeEvent(ev Event) Event {
	switch e := ev.(type) {
	case *Offer:
		if e != nil {
			return *e
		}
	case *ChunkOpen:
		if e != nil {
			return *e
		}
	case *ChunkData:
		if e != nil {
			return *e
		}
	case *ChunkClose:
		if e != nil {
			return *e
		}
	}
	return ev
}

// OnFileOffer registers an incoming transfer and posts a placeholder
// attachment message for it. An offer reusing an active session id is
// rejected with ErrSessionExists and leaves the active session untouched.
func (r *Reassembler) OnFileOffer(peer, sessionID, fileName, declaredSize, mediaType string) error {
	logrus.WithFields(logrus.Fields{
		"function":   "OnFileOffer",
		"peer":       peer,
		"session_id": sessionID,
		"file_name":  fileName,
		"file_size":  declaredSize,
		"media_type": mediaType,
	}).Info("Incoming file offer")

	size, err := limits.ParseDeclaredSize(declaredSize)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "OnFileOffer",
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Rejecting offer with invalid size")
		return err
	}
	if err := limits.ValidateFileName(fileName); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "OnFileOffer",
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Rejecting offer with invalid file name")
		return err
	}
	if err := limits.ValidateFileSize(size, r.config.MaxFileSize); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":      "OnFileOffer",
			"session_id":    sessionID,
			"file_size":     size,
			"max_file_size": r.config.MaxFileSize,
		}).Warn("Rejecting offer exceeding maximum file size")
		r.ui.PostSystemNotice(peer, fmt.Sprintf("File too large: %s (%s)", fileName, FormatBytes(size)))
		return err
	}

	if r.isActive(sessionID) {
		return r.rejectDuplicate(sessionID)
	}

	handle := r.ui.PostMessage(interfaces.Attachment{
		UID:       sessionID + ":msg",
		Peer:      peer,
		Direction: interfaces.DirectionIn,
		Name:      fileName,
		MediaType: InferMediaType(fileName, mediaType),
		Size:      size,
	})

	r.mu.Lock()
	if _, exists := r.transfers[sessionID]; exists {
		r.mu.Unlock()
		return r.rejectDuplicate(sessionID)
	}
	now := r.timeProvider.Now()
	r.transfers[sessionID] = &Session{
		SessionID:         sessionID,
		Peer:              peer,
		Direction:         TransferDirectionIncoming,
		FileName:          fileName,
		DeclaredSize:      size,
		DeclaredMediaType: mediaType,
		State:             TransferStateTransferring,
		Message:           handle,
		StartTime:         now,
		Received:          make([]byte, 0, initialCapacity(size)),
		lastChunkTime:     now,
	}
	active := len(r.transfers)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":         "OnFileOffer",
		"session_id":       sessionID,
		"active_transfers": active,
	}).Info("Incoming file transfer created")

	return nil
}

func (r *Reassembler) isActive(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.transfers[sessionID]
	return exists
}

func (r *Reassembler) rejectDuplicate(sessionID string) error {
	logrus.WithFields(logrus.Fields{
		"function":   "OnFileOffer",
		"session_id": sessionID,
	}).Warn("Rejecting offer for an already active session")
	return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
}

// initialCapacity caps the up-front buffer allocation; the declared size is
// untrusted until the bytes actually arrive.
func initialCapacity(size int64) int {
	const maxInitial = 1 << 20
	if size > maxInitial {
		return maxInitial
	}
	return int(size)
}

// incoming returns the live incoming session for sessionID. Must hold r.mu.
func (r *Reassembler) incoming(sessionID string) (*Session, error) {
	s, ok := r.transfers[sessionID]
	if !ok || s.Direction != TransferDirectionIncoming {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return s, nil
}

// OnChunkOpen acknowledges a bytestream open. The offer already carried all
// metadata, so no state changes.
func (r *Reassembler) OnChunkOpen(sessionID string) error {
	r.mu.Lock()
	_, err := r.incoming(sessionID)
	r.mu.Unlock()

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "OnChunkOpen",
			"session_id": sessionID,
		}).Debug("Bytestream open for unknown session")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "OnChunkOpen",
		"session_id": sessionID,
	}).Debug("Bytestream opened")
	return nil
}

// OnChunkData appends one chunk if seq is the next expected sequence number.
// Any other chunk is dropped without buffering and the transfer continues.
func (r *Reassembler) OnChunkData(sessionID string, seq int, payload string) error {
	r.mu.Lock()
	s, err := r.incoming(sessionID)
	if err != nil {
		r.mu.Unlock()
		// Expected after close: the peer may still flush data it already queued.
		logrus.WithFields(logrus.Fields{
			"function":   "OnChunkData",
			"session_id": sessionID,
			"seq":        seq,
		}).Debug("Chunk for unknown session")
		return err
	}

	if s.State != TransferStateTransferring {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrUnknownSession, sessionID, s.State)
	}

	if seq != s.NextExpectedSeq {
		expected := s.NextExpectedSeq
		r.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function":     "OnChunkData",
			"session_id":   sessionID,
			"seq":          seq,
			"expected_seq": expected,
		}).Warn("Chunk received out of order, dropping")
		return fmt.Errorf("%w: got %d, expected %d", ErrSequenceMismatch, seq, expected)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		r.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function":   "OnChunkData",
			"session_id": sessionID,
			"seq":        seq,
			"error":      err.Error(),
		}).Warn("Chunk payload is not valid base64, dropping")
		return fmt.Errorf("%w: %v", ErrMalformedChunk, err)
	}

	if int64(len(s.Received))+int64(len(data)) > s.DeclaredSize {
		received := len(s.Received)
		r.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function":      "OnChunkData",
			"session_id":    sessionID,
			"seq":           seq,
			"received":      received,
			"chunk_size":    len(data),
			"declared_size": s.DeclaredSize,
		}).Warn("Chunk would exceed declared size, dropping")
		return fmt.Errorf("%w: %d + %d > %d", ErrSizeOverflow, received, len(data), s.DeclaredSize)
	}

	s.Received = append(s.Received, data...)
	s.NextExpectedSeq++
	s.updateSpeed(len(data), r.timeProvider.Now())
	handle, received, total := s.Message, int64(len(s.Received)), s.DeclaredSize
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "OnChunkData",
		"session_id": sessionID,
		"seq":        seq,
		"received":   received,
		"total":      total,
	}).Debug("Chunk accepted")

	r.ui.UpdateProgress(handle, received, total)
	return nil
}

// OnChunkClose finishes an incoming transfer. The session is removed whether
// the received size matches the declared size or not.
func (r *Reassembler) OnChunkClose(sessionID string) error {
	r.mu.Lock()
	s, err := r.incoming(sessionID)
	if err != nil {
		r.mu.Unlock()
		// The peer closes after our last acknowledged chunk when we send, and
		// duplicates are possible; neither is an error.
		logrus.WithFields(logrus.Fields{
			"function":   "OnChunkClose",
			"session_id": sessionID,
		}).Debug("Bytestream close for unknown session")
		return err
	}
	delete(r.transfers, sessionID)
	callback := r.completeCallback
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":      "OnChunkClose",
		"session_id":    sessionID,
		"declared_size": s.DeclaredSize,
		"received_size": len(s.Received),
	}).Info("File transfer finished")

	var result *File
	if int64(len(s.Received)) == s.DeclaredSize {
		s.State = TransferStateCompleted
		result = NewFile(s.FileName, InferMediaType(s.FileName, s.DeclaredMediaType), s.Received)
		r.ui.PostMessage(interfaces.Attachment{
			UID:       sessionID + ":msg",
			Peer:      s.Peer,
			Direction: interfaces.DirectionIn,
			Name:      result.Name,
			MediaType: result.MediaType,
			Size:      result.Size(),
			Data:      result.DataURL(),
		})

		logrus.WithFields(logrus.Fields{
			"function":   "OnChunkClose",
			"session_id": sessionID,
			"file_name":  s.FileName,
			"media_type": result.MediaType,
			"checksum":   fmt.Sprintf("%x", result.Checksum[:8]),
		}).Info("File received")
	} else {
		s.State = TransferStateFailed
		err = fmt.Errorf("%w: %s received %d of %d bytes", ErrSizeMismatch, s.FileName, len(s.Received), s.DeclaredSize)
		r.ui.PostSystemNotice(s.Peer, "File was not properly received: "+s.FileName)

		logrus.WithFields(logrus.Fields{
			"function":   "OnChunkClose",
			"session_id": sessionID,
			"file_name":  s.FileName,
			"error":      err.Error(),
		}).Error("File was not properly received")
	}

	if callback != nil {
		callback(s.snapshot(), result, err)
	}
	return err
}

// nopUI discards all UI output.
type nopUI struct{}

func (nopUI) PostMessage(a interfaces.Attachment) interfaces.MessageHandle {
	return interfaces.MessageHandle(a.UID)
}
func (nopUI) UpdateProgress(interfaces.MessageHandle, int64, int64) {}
func (nopUI) MarkReceived(interfaces.MessageHandle)                 {}
func (nopUI) PostSystemNotice(string, string)                       {}

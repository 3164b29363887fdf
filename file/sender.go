package file

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/sitransfer/interfaces"
	"github.com/opd-ai/sitransfer/limits"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// closeTimeout bounds the fire-and-forget bytestream close.
const closeTimeout = 30 * time.Second

// NewSessionID returns a fresh session id built from the current time and a
// random UUID.
func NewSessionID() string {
	return sessionIDAt(time.Now())
}

func sessionIDAt(now time.Time) string {
	return "sitransfer:" + strconv.FormatInt(now.UnixNano(), 36) + ":" + uuid.NewString()
}

// SendFile sends src to peer and reports progress on msg.
//
// Reading the file runs concurrently with the offer and the bytestream open.
// Chunks are then sent strictly in order, each awaiting its acknowledgment.
// The final close is not awaited. On any failure the remaining steps are
// skipped, one system notice naming the file is posted and the error is
// returned; nothing is retried.
func (r *Reassembler) SendFile(ctx context.Context, peer string, src Source, msg interfaces.MessageHandle) error {
	r.mu.Lock()
	sessionID := sessionIDAt(r.timeProvider.Now())
	r.mu.Unlock()

	if r.negotiator == nil || r.chunks == nil {
		return r.failSend(peer, sessionID, src.Name(), ErrNoTransport)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "SendFile",
		"peer":       peer,
		"session_id": sessionID,
		"file_name":  src.Name(),
		"file_size":  src.Size(),
	}).Info("Initiating outgoing file transfer")

	if err := r.validateOutgoing(src); err != nil {
		return r.failSend(peer, sessionID, src.Name(), err)
	}

	r.mu.Lock()
	now := r.timeProvider.Now()
	r.transfers[sessionID] = &Session{
		SessionID:         sessionID,
		Peer:              peer,
		Direction:         TransferDirectionOutgoing,
		FileName:          src.Name(),
		DeclaredSize:      src.Size(),
		DeclaredMediaType: src.MediaType(),
		State:             TransferStateNegotiating,
		Message:           msg,
		StartTime:         now,
		BlockSize:         r.config.BlockSize,
		lastChunkTime:     now,
	}
	r.mu.Unlock()

	payload, blockSize, err := r.negotiate(ctx, peer, sessionID, src)
	if err != nil {
		return r.failSend(peer, sessionID, src.Name(), err)
	}

	if err := r.sendChunks(ctx, peer, sessionID, payload, blockSize, msg); err != nil {
		return r.failSend(peer, sessionID, src.Name(), err)
	}

	go r.closeStream(peer, sessionID)

	r.finishSend(sessionID, nil)
	r.ui.MarkReceived(msg)

	logrus.WithFields(logrus.Fields{
		"function":   "SendFile",
		"session_id": sessionID,
		"file_name":  src.Name(),
	}).Info("File sent")
	return nil
}

func (r *Reassembler) validateOutgoing(src Source) error {
	if err := limits.ValidateFileName(src.Name()); err != nil {
		return err
	}
	return limits.ValidateFileSize(src.Size(), r.config.MaxFileSize)
}

// negotiate reads the file while offering it and opening the bytestream.
// It returns the base64 payload and the block size to slice it with.
func (r *Reassembler) negotiate(ctx context.Context, peer, sessionID string, src Source) (string, int, error) {
	g, gctx := errgroup.WithContext(ctx)

	var payload string
	g.Go(func() error {
		data, err := src.ReadBase64(gctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", src.Name(), err)
		}
		payload = data
		return nil
	})

	var agreed int
	g.Go(func() error {
		if err := r.negotiator.Offer(gctx, peer, sessionID, src.Name(), src.Size(), src.MediaType()); err != nil {
			return fmt.Errorf("%w: %v", ErrNegotiationFailed, err)
		}

		blockSize, err := r.chunks.Open(gctx, peer, sessionID, r.config.BlockSize)
		if err != nil {
			return fmt.Errorf("%w: open: %v", ErrTransportFailed, err)
		}
		if blockSize == 0 {
			blockSize = r.config.BlockSize
		}
		if err := limits.ValidateBlockSize(blockSize); err != nil {
			return fmt.Errorf("%w: %v", ErrTransportFailed, err)
		}
		agreed = blockSize
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", 0, err
	}

	blockSize := alignBlockSize(agreed)
	r.mu.Lock()
	if s, ok := r.transfers[sessionID]; ok {
		s.State = TransferStateTransferring
		s.BlockSize = blockSize
	}
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "SendFile",
		"session_id":     sessionID,
		"block_size":     blockSize,
		"payload_length": len(payload),
	}).Debug("Bytestream opened")

	return payload, blockSize, nil
}

func (r *Reassembler) sendChunks(ctx context.Context, peer, sessionID, payload string, blockSize int, msg interfaces.MessageHandle) error {
	chunks := SplitPayload(payload, blockSize)
	numChunks := int64(len(chunks))

	for seq, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.chunks.SendChunk(ctx, peer, sessionID, seq, chunk); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrTransportFailed, seq, err)
		}

		r.mu.Lock()
		if s, ok := r.transfers[sessionID]; ok {
			s.SentSeq = seq + 1
			s.updateSpeed(len(chunk), r.timeProvider.Now())
		}
		r.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function":   "SendFile",
			"session_id": sessionID,
			"seq":        seq,
			"num_chunks": numChunks,
		}).Debug("Chunk acknowledged")

		r.ui.UpdateProgress(msg, int64(seq), numChunks)
	}
	return nil
}

func (r *Reassembler) closeStream(peer, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := r.chunks.Close(ctx, peer, sessionID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "closeStream",
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to close bytestream")
	}
}

// finishSend removes an outgoing session and reports it to the complete callback.
func (r *Reassembler) finishSend(sessionID string, err error) {
	r.mu.Lock()
	s, ok := r.transfers[sessionID]
	delete(r.transfers, sessionID)
	callback := r.completeCallback
	r.mu.Unlock()

	if !ok {
		return
	}
	if err != nil {
		s.State = TransferStateFailed
	} else {
		s.State = TransferStateCompleted
	}
	if callback != nil {
		callback(s.snapshot(), nil, err)
	}
}

func (r *Reassembler) failSend(peer, sessionID, fileName string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function":   "SendFile",
		"peer":       peer,
		"session_id": sessionID,
		"file_name":  fileName,
		"error":      err.Error(),
	}).Error("Error sending file")

	r.finishSend(sessionID, err)
	r.ui.PostSystemNotice(peer, "Error sending file "+fileName)
	return err
}

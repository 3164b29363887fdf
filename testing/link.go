package testing

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/opd-ai/sitransfer/file"
	"github.com/sirupsen/logrus"
)

// ErrOfferRejected is returned by Offer when the link is configured to
// reject every offer.
var ErrOfferRejected = errors.New("offer rejected by simulated peer")

// EventSink receives the protocol events a Link produces.
type EventSink interface {
	Handle(ev file.Event) error
}

// LinkConfig configures a simulated link.
type LinkConfig struct {
	// MaxBlockSize caps the block size Open agrees to. Zero means no cap.
	MaxBlockSize int
	// RejectOffers makes every Offer fail with ErrOfferRejected.
	RejectOffers bool
}

// DeliveryRecord represents one operation carried over the link.
type DeliveryRecord struct {
	Kind        string
	Peer        string
	SessionID   string
	Seq         int
	PayloadSize int
	Timestamp   int64
	Success     bool
	Error       error
}

// LinkStats summarizes a delivery log.
type LinkStats struct {
	Offers     int
	Opens      int
	Chunks     int
	Closes     int
	Failures   int
	Dropped    int
	Duplicated int
}

// Link is an in-memory negotiator and chunk transport. Every operation the
// sending side performs is turned into the matching file.Event and handed to
// the receiving side's sink, as if it arrived from the sender's address.
type Link struct {
	from   string
	sink   EventSink
	config LinkConfig

	failChunks map[int]error
	dropChunks map[int]bool
	dupChunks  map[int]bool

	deliveryLog []DeliveryRecord
	stats       LinkStats
	mu          sync.Mutex
}

// NewLink creates a link delivering events from the address from into sink.
// A nil config selects the zero LinkConfig.
func NewLink(from string, sink EventSink, config *LinkConfig) *Link {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")

	cfg := LinkConfig{}
	if config != nil {
		cfg = *config
	}
	logrus.WithFields(logrus.Fields{
		"function":       "NewLink",
		"from":           from,
		"max_block_size": cfg.MaxBlockSize,
		"reject_offers":  cfg.RejectOffers,
	}).Info("Creating simulated link for testing")

	return &Link{
		from:       from,
		sink:       sink,
		config:     cfg,
		failChunks: make(map[int]error),
		dropChunks: make(map[int]bool),
		dupChunks:  make(map[int]bool),
	}
}

// FailChunk makes SendChunk return err for seq, without delivering it.
func (l *Link) FailChunk(seq int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failChunks[seq] = err
}

// DropChunk acknowledges seq to the sender but never delivers it.
func (l *Link) DropChunk(seq int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropChunks[seq] = true
}

// DuplicateChunk delivers seq twice.
func (l *Link) DuplicateChunk(seq int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dupChunks[seq] = true
}

// Offer implements interfaces.INegotiator.
func (l *Link) Offer(ctx context.Context, peer, sessionID, fileName string, size int64, mediaType string) error {
	if err := ctx.Err(); err != nil {
		l.record(DeliveryRecord{Kind: "offer", Peer: peer, SessionID: sessionID, Error: err})
		return err
	}
	if l.config.RejectOffers {
		l.record(DeliveryRecord{Kind: "offer", Peer: peer, SessionID: sessionID, Error: ErrOfferRejected})
		return ErrOfferRejected
	}

	err := l.deliver(file.Offer{
		Peer:      l.from,
		SessionID: sessionID,
		FileName:  fileName,
		Size:      strconv.FormatInt(size, 10),
		MediaType: mediaType,
	})
	l.record(DeliveryRecord{Kind: "offer", Peer: peer, SessionID: sessionID, Success: err == nil, Error: err})
	return err
}

// Open implements interfaces.IChunkTransport. It agrees to blockSize, capped
// by LinkConfig.MaxBlockSize.
func (l *Link) Open(ctx context.Context, peer, sessionID string, blockSize int) (int, error) {
	if err := ctx.Err(); err != nil {
		l.record(DeliveryRecord{Kind: "open", Peer: peer, SessionID: sessionID, Error: err})
		return 0, err
	}

	agreed := blockSize
	if l.config.MaxBlockSize > 0 && agreed > l.config.MaxBlockSize {
		agreed = l.config.MaxBlockSize
	}

	err := l.deliver(file.ChunkOpen{Peer: l.from, SessionID: sessionID, BlockSize: agreed})
	l.record(DeliveryRecord{Kind: "open", Peer: peer, SessionID: sessionID, Success: err == nil, Error: err})
	if err != nil {
		return 0, err
	}
	return agreed, nil
}

// SendChunk implements interfaces.IChunkTransport.
func (l *Link) SendChunk(ctx context.Context, peer, sessionID string, seq int, data string) error {
	rec := DeliveryRecord{Kind: "data", Peer: peer, SessionID: sessionID, Seq: seq, PayloadSize: len(data)}
	if err := ctx.Err(); err != nil {
		rec.Error = err
		l.record(rec)
		return err
	}

	l.mu.Lock()
	failErr, fail := l.failChunks[seq]
	drop := l.dropChunks[seq]
	dup := l.dupChunks[seq]
	l.mu.Unlock()

	switch {
	case fail:
		rec.Error = failErr
		l.record(rec)
		return failErr
	case drop:
		logrus.WithFields(logrus.Fields{
			"function":   "Link.SendChunk",
			"session_id": sessionID,
			"seq":        seq,
		}).Debug("Dropping chunk")
		rec.Success = true
		l.record(rec)
		l.count(func(s *LinkStats) { s.Dropped++ })
		return nil
	}

	ev := file.ChunkData{Peer: l.from, SessionID: sessionID, Seq: seq, Data: data}
	err := l.deliver(ev)
	if err == nil && dup {
		err = l.deliver(ev)
		l.count(func(s *LinkStats) { s.Duplicated++ })
	}
	rec.Success = err == nil
	rec.Error = err
	l.record(rec)
	return err
}

// Close implements interfaces.IChunkTransport.
func (l *Link) Close(ctx context.Context, peer, sessionID string) error {
	if err := ctx.Err(); err != nil {
		l.record(DeliveryRecord{Kind: "close", Peer: peer, SessionID: sessionID, Error: err})
		return err
	}
	err := l.deliver(file.ChunkClose{Peer: l.from, SessionID: sessionID})
	l.record(DeliveryRecord{Kind: "close", Peer: peer, SessionID: sessionID, Success: err == nil, Error: err})
	return err
}

// GetDeliveryLog returns a copy of the delivery log.
func (l *Link) GetDeliveryLog() []DeliveryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]DeliveryRecord(nil), l.deliveryLog...)
}

// ClearDeliveryLog resets the delivery log and statistics.
func (l *Link) ClearDeliveryLog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deliveryLog = nil
	l.stats = LinkStats{}
}

// GetStats returns delivery statistics.
func (l *Link) GetStats() LinkStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// deliver hands ev to the sink. The sink runs without the link's lock held.
func (l *Link) deliver(ev file.Event) error {
	if l.sink == nil {
		return nil
	}
	return l.sink.Handle(ev)
}

func (l *Link) record(rec DeliveryRecord) {
	rec.Timestamp = time.Now().UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.deliveryLog = append(l.deliveryLog, rec)
	if !rec.Success {
		l.stats.Failures++
		return
	}
	switch rec.Kind {
	case "offer":
		l.stats.Offers++
	case "open":
		l.stats.Opens++
	case "data":
		l.stats.Chunks++
	case "close":
		l.stats.Closes++
	}
}

func (l *Link) count(f func(*LinkStats)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f(&l.stats)
}

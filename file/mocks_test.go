package file

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opd-ai/sitransfer/interfaces"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

type progressUpdate struct {
	handle  interfaces.MessageHandle
	current int64
	total   int64
}

type notice struct {
	peer string
	text string
}

// mockUI records everything the reassembler shows.
type mockUI struct {
	mu       sync.Mutex
	posted   []interfaces.Attachment
	progress []progressUpdate
	received []interfaces.MessageHandle
	notices  []notice
}

func newMockUI() *mockUI {
	return &mockUI{}
}

func (m *mockUI) PostMessage(a interfaces.Attachment) interfaces.MessageHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, a)
	if a.UID == "" {
		return interfaces.MessageHandle("out")
	}
	return interfaces.MessageHandle(a.UID)
}

func (m *mockUI) UpdateProgress(h interfaces.MessageHandle, current, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, progressUpdate{handle: h, current: current, total: total})
}

func (m *mockUI) MarkReceived(h interfaces.MessageHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, h)
}

func (m *mockUI) PostSystemNotice(peer, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice{peer: peer, text: text})
}

func (m *mockUI) getNotices() []notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notice(nil), m.notices...)
}

func (m *mockUI) getPosted() []interfaces.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.Attachment(nil), m.posted...)
}

func (m *mockUI) getProgress() []progressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]progressUpdate(nil), m.progress...)
}

var errMockRejected = errors.New("mock: rejected")

type sentChunk struct {
	seq  int
	data string
}

// mockPeer implements INegotiator and IChunkTransport for testing.
type mockPeer struct {
	mu sync.Mutex

	offerErr  error
	openErr   error
	chunkErrs map[int]error
	blockSize int // agreed size returned by Open; negative echoes the request

	offers        int
	requestedSize int
	chunks        []sentChunk
	closed        chan string
	calls         []string
}

func newMockPeer() *mockPeer {
	return &mockPeer{
		chunkErrs: make(map[int]error),
		blockSize: -1,
		closed:    make(chan string, 8),
	}
}

func (m *mockPeer) Offer(ctx context.Context, peer, sessionID, fileName string, size int64, mediaType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers++
	m.calls = append(m.calls, "offer")
	return m.offerErr
}

func (m *mockPeer) Open(ctx context.Context, peer, sessionID string, blockSize int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "open")
	m.requestedSize = blockSize
	if m.openErr != nil {
		return 0, m.openErr
	}
	if m.blockSize < 0 {
		return blockSize, nil
	}
	return m.blockSize, nil
}

func (m *mockPeer) SendChunk(ctx context.Context, peer, sessionID string, seq int, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "data")
	if err, ok := m.chunkErrs[seq]; ok {
		return err
	}
	m.chunks = append(m.chunks, sentChunk{seq: seq, data: data})
	return nil
}

func (m *mockPeer) Close(ctx context.Context, peer, sessionID string) error {
	m.mu.Lock()
	m.calls = append(m.calls, "close")
	m.mu.Unlock()
	m.closed <- sessionID
	return nil
}

func (m *mockPeer) getChunks() []sentChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentChunk(nil), m.chunks...)
}

// failingSource returns an error from ReadBase64.
type failingSource struct {
	err error
}

func (failingSource) Name() string      { return "broken.bin" }
func (failingSource) Size() int64       { return 10 }
func (failingSource) MediaType() string { return DefaultMediaType }
func (s failingSource) ReadBase64(context.Context) (string, error) {
	return "", s.err
}

// bogusEvent satisfies Event without being one of the protocol events.
type bogusEvent struct {
	Event
}

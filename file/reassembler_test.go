package file

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/sitransfer/interfaces"
	"github.com/opd-ai/sitransfer/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func newTestReassembler(t *testing.T) (*Reassembler, *mockUI) {
	t.Helper()
	ui := newMockUI()
	r := NewReassembler(ui, nil, nil, interfaces.TransferConfig{})
	r.SetTimeProvider(newMockTimeProvider())
	return r, ui
}

type completion struct {
	session Session
	file    *File
	err     error
}

func captureCompletions(r *Reassembler) *[]completion {
	var got []completion
	r.OnComplete(func(s Session, f *File, err error) {
		got = append(got, completion{session: s, file: f, err: err})
	})
	return &got
}

func TestNewReassembler(t *testing.T) {
	r := NewReassembler(nil, nil, nil, interfaces.TransferConfig{})
	require.NotNil(t, r)

	assert.NotNil(t, r.transfers)
	assert.Equal(t, limits.DefaultBlockSize, r.config.BlockSize)
	assert.Empty(t, r.ActiveSessions())

	// a nil UI must not break handlers
	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, testFileName, "2", ""))
	require.NoError(t, r.OnChunkData(testSessionID, 0, b64("hi")))
	require.NoError(t, r.OnChunkClose(testSessionID))
}

// TestHelloWorldScenario delivers "hello wor" + "ld" and expects "hello world".
func TestHelloWorldScenario(t *testing.T) {
	r, ui := newTestReassembler(t)
	done := captureCompletions(r)

	require.NoError(t, r.Handle(Offer{Peer: testPeer, SessionID: testSessionID, FileName: testFileName, Size: "11", MediaType: "text/plain"}))
	require.NoError(t, r.Handle(ChunkOpen{Peer: testPeer, SessionID: testSessionID, BlockSize: 4096}))
	require.NoError(t, r.Handle(ChunkData{Peer: testPeer, SessionID: testSessionID, Seq: 0, Data: b64("hello wor")}))
	require.NoError(t, r.Handle(ChunkData{Peer: testPeer, SessionID: testSessionID, Seq: 1, Data: b64("ld")}))

	s, ok := r.Session(testSessionID)
	require.True(t, ok)
	assert.Equal(t, TransferStateTransferring, s.State)
	assert.Equal(t, 2, s.NextExpectedSeq)
	assert.Equal(t, "hello world", string(s.Received))

	require.NoError(t, r.Handle(ChunkClose{Peer: testPeer, SessionID: testSessionID}))

	require.Len(t, *done, 1)
	c := (*done)[0]
	require.NoError(t, c.err)
	require.NotNil(t, c.file)
	assert.Equal(t, TransferStateCompleted, c.session.State)
	assert.Equal(t, "hello world", string(c.file.Data))
	assert.Equal(t, "text/plain", c.file.MediaType)
	assert.Equal(t, int64(11), c.file.Size())

	_, ok = r.Session(testSessionID)
	assert.False(t, ok, "session must be removed after close")
	assert.Empty(t, ui.getNotices())

	posted := ui.getPosted()
	require.Len(t, posted, 2, "placeholder and final attachment")
	assert.Equal(t, testSessionID+":msg", posted[0].UID)
	assert.Empty(t, posted[0].Data)
	assert.Equal(t, posted[0].UID, posted[1].UID)
	assert.Equal(t, "data:text/plain;base64,"+b64("hello world"), posted[1].Data)
	assert.Equal(t, interfaces.DirectionIn, posted[1].Direction)

	progress := ui.getProgress()
	require.Len(t, progress, 2)
	assert.Equal(t, progressUpdate{handle: interfaces.MessageHandle(testSessionID + ":msg"), current: 9, total: 11}, progress[0])
	assert.Equal(t, int64(11), progress[1].current)
}

func TestOfferPlaceholderInfersMediaType(t *testing.T) {
	r, ui := newTestReassembler(t)

	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, "photo.JPG", "100", ""))

	posted := ui.getPosted()
	require.Len(t, posted, 1)
	assert.Equal(t, "image/jpeg", posted[0].MediaType)
	assert.Equal(t, "photo.JPG", posted[0].Name)
	assert.Equal(t, int64(100), posted[0].Size)
}

func TestOfferValidation(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		size     string
		maxSize  int64
		wantErr  error
		notices  int
	}{
		{name: "negative size", fileName: testFileName, size: "-5", wantErr: limits.ErrInvalidSize},
		{name: "non numeric size", fileName: testFileName, size: "eleven", wantErr: limits.ErrInvalidSize},
		{name: "empty name", fileName: "", size: "1", wantErr: limits.ErrFileNameEmpty},
		{name: "long name", fileName: strings.Repeat("x", limits.MaxFileNameLength+1), size: "1", wantErr: limits.ErrFileNameTooLong},
		{name: "too large", fileName: testFileName, size: "2048", maxSize: testFileSize1KB, wantErr: limits.ErrFileTooLarge, notices: 1},
		{name: "at limit", fileName: testFileName, size: "1024", maxSize: testFileSize1KB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui := newMockUI()
			r := NewReassembler(ui, nil, nil, interfaces.TransferConfig{MaxFileSize: tt.maxSize})

			err := r.OnFileOffer(testPeer, testSessionID, tt.fileName, tt.size, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, ok := r.Session(testSessionID)
				assert.False(t, ok)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, ui.getNotices(), tt.notices)
		})
	}
}

func TestDuplicateOfferRejected(t *testing.T) {
	r, ui := newTestReassembler(t)

	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, "first.txt", "3", ""))
	require.NoError(t, r.OnChunkData(testSessionID, 0, b64("abc")))

	err := r.OnFileOffer(testPeer2, testSessionID, "second.txt", "99", "")
	assert.ErrorIs(t, err, ErrSessionExists)

	s, ok := r.Session(testSessionID)
	require.True(t, ok)
	assert.Equal(t, "first.txt", s.FileName)
	assert.Equal(t, testPeer, s.Peer)
	assert.Equal(t, "abc", string(s.Received))
	assert.Equal(t, 1, s.NextExpectedSeq)
	assert.Len(t, ui.getPosted(), 1, "no placeholder for a rejected offer")

	err = r.Handle(Offer{Peer: testPeer2, SessionID: testSessionID, FileName: "second.txt", Size: "99"})
	assert.ErrorIs(t, err, ErrOfferRejected)
	assert.ErrorIs(t, err, ErrSessionExists)
}

// TestHandleReturnsOfferRejections checks that refused offers reach the caller
// so the negotiation can be declined.
func TestHandleReturnsOfferRejections(t *testing.T) {
	tests := []struct {
		name    string
		offer   Offer
		maxSize int64
		wantErr error
	}{
		{name: "bad size", offer: Offer{SessionID: "a", FileName: "a.txt", Size: "-1"}, wantErr: limits.ErrInvalidSize},
		{name: "empty name", offer: Offer{SessionID: "b", Size: "1"}, wantErr: limits.ErrFileNameEmpty},
		{name: "too large", offer: Offer{SessionID: "c", FileName: "big.bin", Size: "7"}, maxSize: 4, wantErr: limits.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui := newMockUI()
			r := NewReassembler(ui, nil, nil, interfaces.TransferConfig{MaxFileSize: tt.maxSize})
			tt.offer.Peer = testPeer

			err := r.Handle(tt.offer)
			assert.ErrorIs(t, err, ErrOfferRejected)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, r.ActiveSessions())
			assert.Empty(t, ui.getPosted())
		})
	}
}

// TestOrderingInvariant checks that only the expected sequence number is appended.
func TestOrderingInvariant(t *testing.T) {
	tests := []struct {
		name         string
		seqs         []int
		wantAccepted []bool
		wantNext     int
	}{
		{name: "in order", seqs: []int{0, 1, 2}, wantAccepted: []bool{true, true, true}, wantNext: 3},
		{name: "gap", seqs: []int{0, 2, 3}, wantAccepted: []bool{true, false, false}, wantNext: 1},
		{name: "duplicate", seqs: []int{0, 0, 1}, wantAccepted: []bool{true, false, true}, wantNext: 2},
		{name: "starts late", seqs: []int{1, 0, 1}, wantAccepted: []bool{false, true, true}, wantNext: 2},
		{name: "negative", seqs: []int{-1, 0}, wantAccepted: []bool{false, true}, wantNext: 1},
		{name: "reordered", seqs: []int{0, 2, 1, 2}, wantAccepted: []bool{true, false, true, true}, wantNext: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestReassembler(t)
			require.NoError(t, r.OnFileOffer(testPeer, testSessionID, testFileName, "100", ""))

			for i, seq := range tt.seqs {
				before, _ := r.Session(testSessionID)
				err := r.OnChunkData(testSessionID, seq, b64(fmt.Sprintf("[%d]", seq)))
				after, _ := r.Session(testSessionID)

				if tt.wantAccepted[i] {
					require.NoError(t, err, "chunk %d (seq %d)", i, seq)
					assert.Equal(t, before.NextExpectedSeq+1, after.NextExpectedSeq)
					assert.Equal(t, string(before.Received)+fmt.Sprintf("[%d]", seq), string(after.Received))
				} else {
					assert.ErrorIs(t, err, ErrSequenceMismatch, "chunk %d (seq %d)", i, seq)
					assert.Equal(t, before.Received, after.Received)
					assert.Equal(t, before.NextExpectedSeq, after.NextExpectedSeq)
					assert.Equal(t, TransferStateTransferring, after.State, "mismatch must not abort")
				}
			}

			s, _ := r.Session(testSessionID)
			assert.Equal(t, tt.wantNext, s.NextExpectedSeq)
		})
	}
}

func TestSizeMismatchFailsOnce(t *testing.T) {
	tests := []struct {
		name   string
		size   string
		chunks []string
	}{
		{name: "short", size: "11", chunks: []string{"hello"}},
		{name: "nothing received", size: "5", chunks: nil},
		{name: "gap leaves it short", size: "6", chunks: []string{"abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ui := newTestReassembler(t)
			done := captureCompletions(r)

			require.NoError(t, r.OnFileOffer(testPeer, testSessionID, "notes.txt", tt.size, ""))
			for seq, c := range tt.chunks {
				require.NoError(t, r.OnChunkData(testSessionID, seq, b64(c)))
			}
			// an out of order chunk never counts
			assert.ErrorIs(t, r.OnChunkData(testSessionID, len(tt.chunks)+1, b64("zzz")), ErrSequenceMismatch)

			err := r.OnChunkClose(testSessionID)
			assert.ErrorIs(t, err, ErrSizeMismatch)

			notices := ui.getNotices()
			require.Len(t, notices, 1)
			assert.Equal(t, testPeer, notices[0].peer)
			assert.Contains(t, notices[0].text, "notes.txt")

			require.Len(t, *done, 1)
			assert.Equal(t, TransferStateFailed, (*done)[0].session.State)
			assert.Nil(t, (*done)[0].file)

			_, ok := r.Session(testSessionID)
			assert.False(t, ok)

			// a second close is an unknown session, not a second notice
			assert.ErrorIs(t, r.OnChunkClose(testSessionID), ErrUnknownSession)
			assert.Len(t, ui.getNotices(), 1)
		})
	}
}

func TestChunkOverflowDropped(t *testing.T) {
	r, _ := newTestReassembler(t)
	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, testFileName, "4", ""))

	require.NoError(t, r.OnChunkData(testSessionID, 0, b64("abc")))
	assert.ErrorIs(t, r.OnChunkData(testSessionID, 1, b64("def")), ErrSizeOverflow)

	s, _ := r.Session(testSessionID)
	assert.Equal(t, "abc", string(s.Received))
	assert.Equal(t, 1, s.NextExpectedSeq)

	require.NoError(t, r.OnChunkData(testSessionID, 1, b64("d")))
	assert.NoError(t, r.OnChunkClose(testSessionID))
}

func TestMalformedChunkDropped(t *testing.T) {
	r, _ := newTestReassembler(t)
	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, testFileName, "2", ""))

	assert.ErrorIs(t, r.OnChunkData(testSessionID, 0, "!!not base64!!"), ErrMalformedChunk)
	s, _ := r.Session(testSessionID)
	assert.Equal(t, 0, s.NextExpectedSeq)
	assert.Empty(t, s.Received)

	assert.NoError(t, r.OnChunkData(testSessionID, 0, b64("ok")))
}

// TestUnknownSessionRobustness delivers events for a session never offered.
func TestUnknownSessionRobustness(t *testing.T) {
	r, ui := newTestReassembler(t)
	require.NoError(t, r.OnFileOffer(testPeer, "other", testFileName, "3", ""))
	before, _ := r.Session("other")

	assert.ErrorIs(t, r.OnChunkOpen("ghost"), ErrUnknownSession)
	assert.ErrorIs(t, r.OnChunkData("ghost", 0, b64("abc")), ErrUnknownSession)
	assert.ErrorIs(t, r.OnChunkClose("ghost"), ErrUnknownSession)

	assert.NotPanics(t, func() {
		assert.NoError(t, r.Handle(ChunkOpen{SessionID: "ghost"}))
		assert.NoError(t, r.Handle(ChunkData{SessionID: "ghost", Data: b64("abc")}))
		assert.NoError(t, r.Handle(ChunkClose{SessionID: "ghost"}))
	})

	after, _ := r.Session("other")
	assert.Equal(t, before, after)
	assert.Len(t, r.ActiveSessions(), 1)
	assert.Empty(t, ui.getNotices())
	assert.Empty(t, ui.getProgress())
}

func TestHandleUnexpectedEvent(t *testing.T) {
	r, _ := newTestReassembler(t)

	err := r.Handle(bogusEvent{})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)

	err = r.Handle(nil)
	assert.ErrorIs(t, err, ErrUnexpectedEvent)

	var nilOffer *Offer
	err = r.Handle(nilOffer)
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestHandleAcceptsPointerEvents(t *testing.T) {
	r, _ := newTestReassembler(t)
	done := captureCompletions(r)

	require.NoError(t, r.Handle(&Offer{Peer: testPeer, SessionID: testSessionID, FileName: "a.bin", Size: "3"}))
	require.NoError(t, r.Handle(&ChunkOpen{SessionID: testSessionID}))
	require.NoError(t, r.Handle(&ChunkData{SessionID: testSessionID, Seq: 0, Data: b64("xyz")}))
	require.NoError(t, r.Handle(&ChunkClose{SessionID: testSessionID}))

	require.Len(t, *done, 1)
	assert.NoError(t, (*done)[0].err)
	assert.Equal(t, DefaultMediaType, (*done)[0].file.MediaType)
}

func TestEmptyFileCompletes(t *testing.T) {
	r, _ := newTestReassembler(t)
	done := captureCompletions(r)

	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, "empty.txt", "0", ""))
	require.NoError(t, r.OnChunkClose(testSessionID))

	require.Len(t, *done, 1)
	assert.Equal(t, TransferStateCompleted, (*done)[0].session.State)
	assert.Equal(t, int64(0), (*done)[0].file.Size())
	assert.Equal(t, "text/txt", (*done)[0].file.MediaType)
}

func TestInterleavedSessions(t *testing.T) {
	r, _ := newTestReassembler(t)
	done := captureCompletions(r)

	require.NoError(t, r.OnFileOffer(testPeer, "a", "a.txt", "6", ""))
	require.NoError(t, r.OnFileOffer(testPeer2, "b", "b.txt", "4", ""))

	require.NoError(t, r.OnChunkData("a", 0, b64("foo")))
	require.NoError(t, r.OnChunkData("b", 0, b64("ba")))
	require.NoError(t, r.OnChunkData("a", 1, b64("bar")))
	require.NoError(t, r.OnChunkData("b", 1, b64("zz")))
	assert.Len(t, r.ActiveSessions(), 2)

	require.NoError(t, r.OnChunkClose("b"))
	require.NoError(t, r.OnChunkClose("a"))

	require.Len(t, *done, 2)
	assert.Equal(t, "bazz", string((*done)[0].file.Data))
	assert.Equal(t, "foobar", string((*done)[1].file.Data))
	assert.Empty(t, r.ActiveSessions())
}

func TestSessionSnapshotIsolation(t *testing.T) {
	r, _ := newTestReassembler(t)
	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, testFileName, "3", ""))
	require.NoError(t, r.OnChunkData(testSessionID, 0, b64("abc")))

	s, _ := r.Session(testSessionID)
	s.Received[0] = 'X'
	s.NextExpectedSeq = 42

	live, _ := r.Session(testSessionID)
	assert.Equal(t, "abc", string(live.Received))
	assert.Equal(t, 1, live.NextExpectedSeq)
}

func TestTransferSpeed(t *testing.T) {
	ui := newMockUI()
	r := NewReassembler(ui, nil, nil, interfaces.TransferConfig{})
	clock := newMockTimeProvider()
	r.SetTimeProvider(clock)

	require.NoError(t, r.OnFileOffer(testPeer, testSessionID, testFileName, "2000", ""))

	clock.advance(time.Second)
	require.NoError(t, r.OnChunkData(testSessionID, 0, b64(strings.Repeat("a", 1000))))
	s, _ := r.Session(testSessionID)
	assert.InDelta(t, 1000.0, s.Speed(), 0.001)
	assert.InDelta(t, 50.0, s.Progress(), 0.001)

	clock.advance(500 * time.Millisecond)
	require.NoError(t, r.OnChunkData(testSessionID, 1, b64(strings.Repeat("b", 1000))))
	s, _ = r.Session(testSessionID)
	assert.InDelta(t, 0.7*1000+0.3*2000, s.Speed(), 0.001)
	assert.InDelta(t, 100.0, s.Progress(), 0.001)
}

func TestEventSessionAccessor(t *testing.T) {
	events := []Event{
		Offer{SessionID: "x"},
		ChunkOpen{SessionID: "x"},
		ChunkData{SessionID: "x"},
		ChunkClose{SessionID: "x"},
	}
	for _, ev := range events {
		assert.Equal(t, "x", ev.Session(), "%T", ev)
	}
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "negotiating", TransferStateNegotiating.String())
	assert.Equal(t, "transferring", TransferStateTransferring.String())
	assert.Equal(t, "completed", TransferStateCompleted.String())
	assert.Equal(t, "failed", TransferStateFailed.String())
	assert.Equal(t, "unknown", TransferState(99).String())
	assert.Equal(t, "incoming", TransferDirectionIncoming.String())
	assert.Equal(t, "outgoing", TransferDirectionOutgoing.String())
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr error
	}{
		{path: "file.txt", want: "file.txt"},
		{path: "dir/./file.txt", want: "dir/file.txt"},
		{path: "/tmp/file.txt", want: "/tmp/file.txt"},
		{path: "../secret", wantErr: ErrDirectoryTraversal},
		{path: "dir/../../secret", wantErr: ErrDirectoryTraversal},
	}
	for _, tt := range tests {
		got, err := ValidatePath(tt.path)
		if tt.wantErr != nil {
			assert.True(t, errors.Is(err, tt.wantErr), "path %q", tt.path)
			continue
		}
		require.NoError(t, err, "path %q", tt.path)
		assert.Equal(t, tt.want, got)
	}
}

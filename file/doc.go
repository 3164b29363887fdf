// Package file implements SI file transfers carried over in-band bytestreams:
// the table of active transfers of one connection, reassembly of incoming
// files from ordered base64 chunks, and the outgoing send pipeline.
//
// # Overview
//
// The Reassembler is the single owner of every active Session. Incoming
// transfers are driven by protocol events; outgoing transfers by SendFile.
//
//	r := file.NewReassembler(ui, negotiator, chunks, interfaces.TransferConfig{})
//	r.OnComplete(func(s file.Session, f *file.File, err error) {
//	    if err == nil && f != nil {
//	        fmt.Printf("received %s (%s)\n", f.Name, file.FormatBytes(f.Size()))
//	    }
//	})
//
// # Protocol Events
//
// Events form a closed set dispatched by Reassembler.Handle:
//
//   - Offer: a peer offers a file (name, size, optional media type)
//   - ChunkOpen: the peer opened the bytestream
//   - ChunkData: one base64 chunk with its sequence number
//   - ChunkClose: the peer closed the bytestream
//
//	_ = r.Handle(file.Offer{Peer: jid, SessionID: sid, FileName: "a.txt", Size: "11"})
//	_ = r.Handle(file.ChunkData{SessionID: sid, Seq: 0, Data: "aGVsbG8gd29y"})
//	_ = r.Handle(file.ChunkData{SessionID: sid, Seq: 1, Data: "bGQ="})
//	_ = r.Handle(file.ChunkClose{SessionID: sid})
//
// Handle absorbs bookkeeping failures after logging them; only an event
// outside the set above is reported, as ErrUnexpectedEvent. The On* methods
// return the typed errors directly.
//
// # Ordering
//
// A chunk is accepted only when its sequence number equals the session's
// NextExpectedSeq. Anything else is dropped, never buffered; a desynchronized
// sender therefore ends in a size mismatch at close. Chunks that would grow
// the file past its declared size are dropped as well.
//
// # Completion
//
// On close the received length is compared with the declared size. A match
// yields a File whose media type is the declared one or, failing that, one
// inferred from the extension (InferMediaType). A mismatch posts one system
// notice naming the file. The session is removed either way.
//
// # Sending
//
//	err := r.SendFile(ctx, "juliet@example.com/balcony", file.NewBytesSource("a.txt", "", data), handle)
//
// The file is read while the offer and the bytestream open are in flight.
// The payload is then cut into block-size slices (SplitPayload) and sent one
// at a time, each awaiting its acknowledgment. Failures abort the send, post
// one notice and wrap ErrNegotiationFailed or ErrTransportFailed.
//
// # Thread Safety
//
// The session table is guarded by a mutex. UI callbacks and the complete
// callback run without it held.
package file

// Package interfaces defines the collaborator contracts the file transfer core
// depends on.
//
// The transfer core owns no connection, no stanza codec and no rendering.
// Everything outside reassembly is reached through these interfaces so the
// same code runs against a real XMPP stack, the simulated link in the testing
// package, or hand-written mocks.
//
// # Core Interfaces
//
// [INegotiator] performs the file offer handshake (SI file transfer):
//
//	err := negotiator.Offer(ctx, peer, sessionID, "photo.png", 2048, "image/png")
//
// [IChunkTransport] moves base64 slices over an in-band bytestream. Every call
// blocks until the peer acknowledged it:
//
//	blockSize, err := chunks.Open(ctx, peer, sessionID, 4096)
//	err = chunks.SendChunk(ctx, peer, sessionID, 0, slice)
//	err = chunks.Close(ctx, peer, sessionID)
//
// [IUserInterface] receives attachment messages, progress updates, delivery
// confirmations and system notices. Handles returned by PostMessage are opaque
// to the core.
//
// # Configuration
//
// [TransferConfig] carries the requested block size and the optional maximum
// file size.
package interfaces

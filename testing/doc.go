// Package testing provides an in-memory file transfer link for deterministic
// tests of sitransfer.
//
// # Overview
//
// A Link stands in for the XMPP stream between two clients. The sending
// client uses it as both its negotiator and its chunk transport; every offer,
// open, chunk and close it performs is turned into the matching file.Event and
// handed straight to the receiving side's EventSink. Nothing touches the
// network, so tests run fast and reproducibly.
//
// # Usage
//
//	receiver, _ := sitransfer.New(opts, recvWindow, nil, nil)
//	link := testing.NewLink("juliet@capulet.lit/balcony", receiver, &testing.LinkConfig{
//	    MaxBlockSize: 4096,
//	})
//	sender, _ := sitransfer.New(opts, sendWindow, link, link)
//
//	err := sender.SendFile(ctx, "romeo@montague.lit/orchard", src)
//
// # Fault Injection
//
// FailChunk makes a chunk's acknowledgment fail, DropChunk acknowledges a
// chunk without delivering it, and DuplicateChunk delivers it twice. Setting
// LinkConfig.RejectOffers makes the receiving side decline every offer.
//
// # Delivery Logs
//
// The link keeps a log of every operation as a DeliveryRecord. Use
// GetDeliveryLog and GetStats for verification and ClearDeliveryLog to reset
// between test cases.
//
// # Thread Safety
//
// All methods on Link are safe for concurrent use. Events are delivered to the
// sink on the caller's goroutine, outside the link's lock.
package testing

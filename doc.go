// Package sitransfer implements SI file transfer (XEP-0096) over in-band
// bytestreams (XEP-0047) for an XMPP chat client.
//
// The package does not speak XMPP itself. Offers, bytestream opens, data
// chunks and closes arrive as file.Event values from whatever stanza layer
// the host uses, and outgoing transfers go out through the
// interfaces.INegotiator and interfaces.IChunkTransport contracts. Progress,
// finished files and failure notices are reported to an
// interfaces.IUserInterface.
//
// # Getting Started
//
//	options := sitransfer.NewOptions()
//	options.MaxFileSize = 50 << 20
//
//	client, err := sitransfer.New(options, window, negotiator, ibb)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Advertise the feature in service discovery
//	features := client.Features()
//
//	// Feed inbound protocol events
//	client.HandleEvent(file.Offer{Peer: from, SessionID: sid, FileName: name, Size: size})
//
//	// Send a file
//	src, _ := file.NewPathSource("photo.jpg")
//	err = client.SendFile(ctx, "juliet@capulet.lit/balcony", src)
//
// # Choosing a Resource
//
// Files go to a full address. SelectCapableResource picks one from the
// features each resource of a contact advertises.
//
// # Configuration
//
// Options can be loaded from YAML with LoadOptions:
//
//	enabled: true
//	block_size: 4096
//	max_file_size: 52428800
//	log_level: debug
//
// # Thread Safety
//
// Client methods are safe for concurrent use. UI callbacks are made without
// internal locks held.
package sitransfer

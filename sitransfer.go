package sitransfer

import (
	"context"
	"errors"

	"github.com/opd-ai/sitransfer/file"
	"github.com/opd-ai/sitransfer/interfaces"
	"github.com/opd-ai/sitransfer/messaging"
	"github.com/sirupsen/logrus"
)

// ErrDisabled is returned by SendFile when file transfer is switched off.
var ErrDisabled = errors.New("si file transfer disabled")

// failureMarker is implemented by user interfaces that can flag a message as
// failed, such as messaging.Window.
type failureMarker interface {
	MarkFailed(handle interfaces.MessageHandle)
}

// Client is SI file transfer for one connection lifetime.
type Client struct {
	options     *Options
	ui          interfaces.IUserInterface
	reassembler *file.Reassembler
}

// New creates a client. A nil options selects NewOptions and a nil ui an
// in-memory messaging.Window. negotiator and chunks may be nil for a
// receive-only client.
func New(options *Options, ui interfaces.IUserInterface, negotiator interfaces.INegotiator, chunks interfaces.IChunkTransport) (*Client, error) {
	if options == nil {
		options = NewOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if ui == nil {
		ui = messaging.NewWindow()
	}

	level, _ := options.level()
	logrus.SetLevel(level)

	logrus.WithFields(logrus.Fields{
		"function":   "New",
		"enabled":    options.Enabled,
		"block_size": options.BlockSize,
	}).Info("Creating SI file transfer client")

	return &Client{
		options:     options,
		ui:          ui,
		reassembler: file.NewReassembler(ui, negotiator, chunks, options.transferConfig()),
	}, nil
}

// Enabled reports whether file transfer is switched on.
func (c *Client) Enabled() bool {
	return c.options.Enabled
}

// Features returns the service discovery features to advertise.
func (c *Client) Features() []string {
	if !c.options.Enabled {
		return nil
	}
	return []string{FeatureSI, FeatureSIFileTransfer, FeatureIBB}
}

// Handle implements the event sink contract so a client can sit directly
// behind a transport.
func (c *Client) Handle(ev file.Event) error {
	return c.HandleEvent(ev)
}

// HandleEvent passes an inbound protocol event to the reassembler. Events are
// dropped while file transfer is disabled.
func (c *Client) HandleEvent(ev file.Event) error {
	if !c.options.Enabled {
		logrus.WithFields(logrus.Fields{
			"function": "HandleEvent",
		}).Warn("SI file transfer disabled, dropping event")
		return nil
	}
	return c.reassembler.Handle(ev)
}

// SendFile posts an outgoing attachment message for src and sends it to
// peer, a full address.
func (c *Client) SendFile(ctx context.Context, peer string, src file.Source) error {
	if !c.options.Enabled {
		return ErrDisabled
	}

	msg := c.ui.PostMessage(interfaces.Attachment{
		Peer:      peer,
		Direction: interfaces.DirectionOut,
		Name:      src.Name(),
		MediaType: file.InferMediaType(src.Name(), src.MediaType()),
		Size:      src.Size(),
	})

	err := c.reassembler.SendFile(ctx, peer, src, msg)
	if err != nil {
		if m, ok := c.ui.(failureMarker); ok {
			m.MarkFailed(msg)
		}
	}
	return err
}

// OnComplete registers a callback for finished transfers in either direction.
func (c *Client) OnComplete(callback file.CompleteFunc) {
	c.reassembler.OnComplete(callback)
}

// Transfers returns snapshots of the active transfers.
func (c *Client) Transfers() []file.Session {
	return c.reassembler.ActiveSessions()
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (c *Client) SetTimeProvider(tp file.TimeProvider) {
	c.reassembler.SetTimeProvider(tp)
}

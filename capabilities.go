package sitransfer

import (
	"errors"
	"sort"
)

// Service discovery features of SI file transfer over in-band bytestreams.
const (
	FeatureSI             = "http://jabber.org/protocol/si"
	FeatureSIFileTransfer = "http://jabber.org/protocol/si/profile/file-transfer"
	FeatureIBB            = "http://jabber.org/protocol/ibb"
)

var (
	// ErrNoCapableResource indicates no resource of a contact supports SI file transfer.
	ErrNoCapableResource = errors.New("no resource supports file transfer")

	// ErrAmbiguousResource indicates several capable resources and no way to pick one.
	ErrAmbiguousResource = errors.New("several resources support file transfer")
)

// RequiredFeatures returns the features a peer must advertise to receive files.
func RequiredFeatures() []string {
	return []string{FeatureSI, FeatureSIFileTransfer}
}

// SupportsTransfer reports whether features include every required feature.
func SupportsTransfer(features []string) bool {
	have := make(map[string]bool, len(features))
	for _, f := range features {
		have[f] = true
	}
	for _, f := range RequiredFeatures() {
		if !have[f] {
			return false
		}
	}
	return true
}

// SelectCapableResource picks the full address to send a file to. resources
// maps each known resource of bare to its advertised features, and current is
// the resource we are talking to, or empty if unknown.
//
// The current resource wins when it is capable. Otherwise the only capable
// resource is chosen. With none, ErrNoCapableResource is returned; with more
// than one, ErrAmbiguousResource.
func SelectCapableResource(bare, current string, resources map[string][]string) (string, error) {
	if current != "" && SupportsTransfer(resources[current]) {
		return bare + "/" + current, nil
	}

	var capable []string
	for res, features := range resources {
		if SupportsTransfer(features) {
			capable = append(capable, res)
		}
	}
	sort.Strings(capable)

	switch len(capable) {
	case 0:
		return "", ErrNoCapableResource
	case 1:
		return bare + "/" + capable[0], nil
	default:
		return "", ErrAmbiguousResource
	}
}

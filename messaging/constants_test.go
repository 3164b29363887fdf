package messaging

const (
	testPeer  = "juliet@capulet.lit/balcony"
	testPeer2 = "romeo@montague.lit/orchard"
)

package file

// Test fixtures shared by the package tests.
const (
	testPeer      = "juliet@capulet.lit/balcony"
	testPeer2     = "romeo@montague.lit/orchard"
	testSessionID = "s1"
	testFileName  = "hello.txt"

	testFileSize1KB = 1024
	testFileSize1GB = 1073741824
)

package sitransfer

// Common test constants used across multiple test files.

const (
	// testAlice is the sending side's full address.
	testAlice = "alice@example.com/laptop"

	// testBob is the receiving side's full address.
	testBob = "bob@example.com/phone"

	// testBare is a contact's bare address for resource selection.
	testBare = "bob@example.com"
)

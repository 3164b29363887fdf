// Package limits provides centralized size constants and validation functions
// for SI file transfers carried over in-band bytestreams.
//
// # Block Sizes
//
// Chunks travel as base64 text in slices of at most one block:
//
//   - DefaultBlockSize (4096): used when the sender does not request a size.
//   - MinBlockSize (4): one base64 quantum, the smallest slice that decodes
//     on its own.
//   - MaxBlockSize (65535): the block-size attribute of an in-band bytestream
//     open is a 16-bit value.
//
// # Declared Sizes
//
// File offers carry their size as text. ParseDeclaredSize accepts only plain
// non-negative decimal integers:
//
//	size, err := limits.ParseDeclaredSize(offer.Size)
//	if err != nil {
//	    // errors.Is(err, limits.ErrInvalidSize)
//	}
//
// ValidateFileSize enforces an optional upper bound; a limit of zero disables
// the check.
//
// # File Names
//
// ValidateFileName rejects empty names, names longer than MaxFileNameLength
// bytes and names that are not valid UTF-8.
package limits

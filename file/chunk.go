package file

// SplitPayload cuts payload into consecutive slices of blockSize characters.
// The last slice holds the remainder. An empty payload yields no slices and a
// blockSize below one yields the whole payload as a single slice.
func SplitPayload(payload string, blockSize int) []string {
	if payload == "" {
		return nil
	}
	if blockSize < 1 {
		return []string{payload}
	}

	numChunks := (len(payload) + blockSize - 1) / blockSize
	chunks := make([]string, 0, numChunks)
	for start := 0; start < len(payload); start += blockSize {
		end := start + blockSize
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[start:end])
	}
	return chunks
}

// alignBlockSize rounds blockSize down to whole base64 quanta so that every
// slice decodes on its own.
func alignBlockSize(blockSize int) int {
	aligned := blockSize - blockSize%4
	if aligned < 4 {
		return 4
	}
	return aligned
}

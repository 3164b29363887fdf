package file

import "strings"

// DefaultMediaType is used when neither a declared type nor a known extension
// is available.
const DefaultMediaType = "application/octet-stream"

var extensionMediaTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg",
	"mp3":  "audio/mp3",
	"wav":  "audio/wav",
	"pdf":  "application/pdf",
	"txt":  "text/txt",
}

// InferMediaType returns declaredMime when it is non-empty and otherwise maps
// the lowercase extension of fileName through a fixed table.
func InferMediaType(fileName, declaredMime string) string {
	if declaredMime != "" {
		return declaredMime
	}

	dot := strings.LastIndexByte(fileName, '.')
	if dot < 0 {
		return DefaultMediaType
	}

	if mediaType, ok := extensionMediaTypes[strings.ToLower(fileName[dot+1:])]; ok {
		return mediaType
	}
	return DefaultMediaType
}

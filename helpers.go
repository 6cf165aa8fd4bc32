package lighthouse

import (
	"encoding/base64"
	"strings"
)

// EncodeBase64 encodes bytes to a base64 string for JSON transport.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// joinReasons flattens the ordered reason list into the comma-joined form
// the logs table stores.
func joinReasons(reasons []string) string {
	return strings.Join(reasons, ",")
}

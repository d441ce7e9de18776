package codec

import (
	"bytes"
	"encoding/json"
)

// EncodeIndex serializes the ordered id list. A nil list encodes as [].
func EncodeIndex(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return marshal(ids)
}

// DecodeIndex parses an index blob. Empty input is an empty index.
// Returns an empty (non-nil) slice alongside any DecodeError.
func DecodeIndex(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return []string{}, &DecodeError{Kind: "index", Err: err}
	}
	if ids == nil {
		// JSON null
		ids = []string{}
	}
	return ids, nil
}

package repository

import (
	"encoding/json"
	"strings"
)

// encodeIDs renders an id list for a JSON column. A nil list is stored as
// an empty array so JSON_CONTAINS never sees NULL.
func encodeIDs(ids []uint64) ([]byte, error) {
	if ids == nil {
		ids = []uint64{}
	}
	return json.Marshal(ids)
}

// decodeIDs parses a JSON id list column. NULL or empty input yields an
// empty, non-nil slice.
func decodeIDs(raw []byte) ([]uint64, error) {
	out := []uint64{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []uint64{}
	}
	return out, nil
}

// placeholders returns "?,?,?" with n markers and the ids as query args.
func placeholders(ids []uint64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

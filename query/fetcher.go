package query

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// doc is a document prepared for evaluation. Field paths are resolved with
// gjson against the JSON form of the data, so dotted paths reach into
// nested maps.
type doc struct {
	id   string
	data map[string]any
	json []byte
}

func newDoc(id string, data map[string]any) (*doc, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &doc{id: id, data: data, json: raw}, nil
}

// get returns the normalized value at path and whether it exists.
func (d *doc) get(path string) (any, bool) {
	if path == DocumentID {
		return d.id, true
	}
	result := gjson.GetBytes(d.json, escapePath(path))
	if !result.Exists() {
		return nil, false
	}
	return normalize(result.Value()), true
}

// escapePath escapes gjson wildcard and modifier characters; only dots keep
// their path meaning.
func escapePath(path string) string {
	var needs bool
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '\\':
			needs = true
		}
	}
	if !needs {
		return path
	}
	out := make([]byte, 0, len(path)*2)
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '\\':
			out = append(out, '\\')
		}
		out = append(out, path[i])
	}
	return string(out)
}

package collection

import (
	"encoding/json"
	"fmt"
)

// Record is a document of the collection. ID is its key in the store; Data
// holds the remaining fields, the discriminator included.
type Record struct {
	ID   string
	Data map[string]any
}

// Type returns the discriminator, or "" in single-shape collections.
func (r Record) Type() string {
	t, _ := r.Data[TypeField].(string)
	return t
}

// MarshalJSON writes the record as one flat object with an "id" key.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		flat[k] = v
	}
	if r.ID != "" {
		flat["id"] = r.ID
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads a flat object, moving a string "id" into ID.
func (r *Record) UnmarshalJSON(b []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	if flat == nil {
		return fmt.Errorf("record must be a JSON object")
	}
	r.ID = ""
	if id, ok := flat["id"]; ok {
		s, isString := id.(string)
		if !isString {
			return fmt.Errorf("record id must be a string, got %T", id)
		}
		r.ID = s
		delete(flat, "id")
	}
	r.Data = flat
	return nil
}

// RecordUpdate is one entry of UpdateRecords: the target id and its partial
// payload, or after the call the projected fields that were written.
type RecordUpdate struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

package query

import "fmt"

// Cursor marks the position results start strictly after.
type Cursor interface {
	string() string
}

// SnapshotCursor is a resolved document. Native carries the backend's own
// snapshot object when the backend produced one.
type SnapshotCursor struct {
	ID     string
	Data   map[string]any
	Native any
}

func (c SnapshotCursor) string() string {
	return fmt.Sprintf("doc(%s)", c.ID)
}

// ValueCursor is a raw value of the order field.
type ValueCursor struct {
	Value any
}

func (c ValueCursor) string() string {
	return fmt.Sprintf("%v", c.Value)
}

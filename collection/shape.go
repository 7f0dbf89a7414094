package collection

import (
	"fmt"
	"strings"
)

// TypeField is the discriminator naming a record's shape when a collection
// holds more than one.
const TypeField = "type"

// Shape is a named allow-list of field names for one record variant.
type Shape struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
}

// shape is a Shape with its fields indexed.
type shape struct {
	Shape
	fields map[string]struct{}
}

func newShape(s Shape) shape {
	fields := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		fields[f] = struct{}{}
	}
	return shape{Shape: s, fields: fields}
}

func (s shape) has(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// compileShapes validates the declarations and indexes them.
func compileShapes(shapes []Shape) ([]shape, error) {
	if len(shapes) == 0 {
		return nil, fmt.Errorf("%w: no shapes declared", ErrConfiguration)
	}

	out := make([]shape, 0, len(shapes))
	seen := make(map[string]struct{}, len(shapes))
	for _, s := range shapes {
		cs := newShape(s)
		if len(shapes) > 1 {
			if !cs.has(TypeField) {
				return nil, fmt.Errorf("%w: shape %q has no %q field", ErrConfiguration, s.Name, TypeField)
			}
			key := strings.ToLower(s.Name)
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("%w: shape %q declared twice", ErrConfiguration, s.Name)
			}
			seen[key] = struct{}{}
		}
		out = append(out, cs)
	}
	return out, nil
}

// resolve picks the shape a payload conforms to.
func (a *Accessor) resolve(payload map[string]any) (shape, error) {
	if len(a.shapes) == 1 {
		return a.shapes[0], nil
	}

	t, _ := payload[TypeField].(string)
	if t != "" {
		for _, s := range a.shapes {
			if strings.ToLower(t) == strings.ToLower(s.Name) {
				return s, nil
			}
		}
	}
	return shape{}, fmt.Errorf("%w: type %q", ErrShapeResolution, t)
}

// Project returns a fresh map holding only the payload fields declared on
// the payload's shape. The discriminator is always dropped; values are not
// checked.
func (a *Accessor) Project(payload map[string]any) (map[string]any, error) {
	s, err := a.resolve(payload)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == TypeField || !s.has(k) {
			continue
		}
		out[k] = v
	}
	return out, nil
}

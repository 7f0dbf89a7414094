package sqlstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/doccollection/query"
)

// Dialect renders the parts of the SQL that differ between databases.
type Dialect interface {
	Name() string
	gooseDialect() string
	placeholder(n int) string
	// field renders an expression for a document field path.
	field(b *builder, path string) string
	// value renders a comparison operand for a field value.
	value(b *builder, v any) (string, error)
	// typeOf renders the JSON type name of the value at path, NULL when the
	// path is missing.
	typeOf(b *builder, path string) string
	// typeNames lists the names typeOf yields for values of kind.
	typeNames(kind jsonKind) []string
	// arrayContains renders "the array at path contains v".
	arrayContains(b *builder, path string, v any) (string, error)
	// data renders the parameter for a whole JSON document.
	data(b *builder, raw []byte) string
	forUpdate() string
}

// Dialects.
var (
	Postgres Dialect = postgres{}
	SQLite   Dialect = sqlite{}
)

type postgres struct{}

func (postgres) Name() string             { return "postgres" }
func (postgres) gooseDialect() string     { return "pgx" }
func (postgres) placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgres) forUpdate() string        { return " FOR UPDATE" }

func (postgres) field(b *builder, path string) string {
	return fmt.Sprintf("(data #> %s::text[])", b.arg(pgPath(path)))
}

func (postgres) value(b *builder, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return b.arg(string(raw)) + "::jsonb", nil
}

func (postgres) typeOf(b *builder, path string) string {
	return fmt.Sprintf("jsonb_typeof(data #> %s::text[])", b.arg(pgPath(path)))
}

func (postgres) typeNames(kind jsonKind) []string {
	switch kind {
	case kindNull:
		return []string{"null"}
	case kindBool:
		return []string{"boolean"}
	case kindNumber:
		return []string{"number"}
	case kindString:
		return []string{"string"}
	case kindArray:
		return []string{"array"}
	}
	return []string{"object"}
}

func (p postgres) arrayContains(b *builder, path string, v any) (string, error) {
	f := p.field(b, path)
	val, err := p.value(b, v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s @> jsonb_build_array(%s)", f, val), nil
}

func (postgres) data(b *builder, raw []byte) string {
	return b.arg(string(raw)) + "::jsonb"
}

// pgPath renders a dotted field path as a text[] literal.
func pgPath(path string) string {
	parts := strings.Split(path, ".")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		p = strings.ReplaceAll(p, `\`, `\\`)
		p = strings.ReplaceAll(p, `"`, `\"`)
		quoted[i] = `"` + p + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

type sqlite struct{}

func (sqlite) Name() string           { return "sqlite" }
func (sqlite) gooseDialect() string   { return "sqlite3" }
func (sqlite) placeholder(int) string { return "?" }
func (sqlite) forUpdate() string      { return "" }

func (sqlite) field(b *builder, path string) string {
	return fmt.Sprintf("json_extract(data, %s)", b.arg(sqlitePath(path)))
}

func (sqlite) value(b *builder, v any) (string, error) {
	arg, err := sqliteArg(v)
	if err != nil {
		return "", err
	}
	return b.arg(arg), nil
}

func (sqlite) typeOf(b *builder, path string) string {
	return fmt.Sprintf("json_type(data, %s)", b.arg(sqlitePath(path)))
}

func (sqlite) typeNames(kind jsonKind) []string {
	switch kind {
	case kindNull:
		return []string{"null"}
	case kindBool:
		return []string{"true", "false"}
	case kindNumber:
		return []string{"integer", "real"}
	case kindString:
		return []string{"text"}
	case kindArray:
		return []string{"array"}
	}
	return []string{"object"}
}

// json_each walks a scalar as a one element array, so the path is checked
// for an array first.
func (s sqlite) arrayContains(b *builder, path string, v any) (string, error) {
	kind, err := kindOf(v)
	if err != nil {
		return "", err
	}
	isArray := typeTest(s.typeOf(b, path), s.typeNames(kindArray))
	p := b.arg(sqlitePath(path))
	elem := typeTest("json_each.type", s.typeNames(kind))
	if kind == kindNull {
		return fmt.Sprintf("(%s AND EXISTS (SELECT 1 FROM json_each(data, %s) WHERE %s))", isArray, p, elem), nil
	}
	val, err := s.value(b, v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s AND EXISTS (SELECT 1 FROM json_each(data, %s) WHERE %s AND json_each.value = %s))",
		isArray, p, elem, val), nil
}

func (sqlite) data(b *builder, raw []byte) string {
	return b.arg(string(raw))
}

// sqlitePath renders a dotted field path as a JSON path with quoted labels.
func sqlitePath(path string) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, p := range strings.Split(path, ".") {
		sb.WriteString(`."`)
		sb.WriteString(strings.ReplaceAll(p, `"`, `\"`))
		sb.WriteString(`"`)
	}
	return sb.String()
}

// sqliteArg converts a clause value to what json_extract yields for the
// same JSON: booleans become 0 or 1, composites stay JSON text. Values go
// through their JSON form first, so time.Time compares as its RFC 3339 text.
func sqliteArg(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	switch raw[0] {
	case 'n':
		return nil, nil
	case 't':
		return int64(1), nil
	case 'f':
		return int64(0), nil
	case '"':
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
		return str, nil
	case '[', '{':
		return string(raw), nil
	}
	n := json.Number(raw)
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return f, nil
}

type jsonKind int

const (
	kindNull jsonKind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

// kindOf classifies v by the JSON it encodes to.
func kindOf(v any) (jsonKind, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return kindNull, fmt.Errorf("encode value: %w", err)
	}
	switch raw[0] {
	case 'n':
		return kindNull, nil
	case 't', 'f':
		return kindBool, nil
	case '"':
		return kindString, nil
	case '[':
		return kindArray, nil
	case '{':
		return kindObject, nil
	}
	return kindNumber, nil
}

// typeTest renders "expr is one of names".
func typeTest(expr string, names []string) string {
	if len(names) == 1 {
		return fmt.Sprintf("%s = '%s'", expr, names[0])
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return fmt.Sprintf("%s IN (%s)", expr, strings.Join(quoted, ", "))
}

// idValue renders a comparison operand against the id column.
func idValue(b *builder, v any) string {
	return b.arg(fmt.Sprint(v))
}

func isID(path string) bool {
	return path == query.DocumentID
}

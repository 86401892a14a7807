package knot

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// This is the serialization used for digests, golden snapshots, and the
// persisted batch log.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped, nor U+2028/U+2029)
//  3. Strings are NFC normalized
//  4. No floats, no null
//  5. Absent optional knot fields are omitted rather than written as null
//
// Knots (the map) is written as an array ordered by id, since canonical
// object keys must be strings.
func MarshalCanonical(v any) ([]byte, error) {
	val, err := toCanonicalValue(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// KnotMap converts a knot into the generic map form used by MarshalCanonical.
func KnotMap(k Knot) map[string]any {
	children := make([]any, len(k.Children))
	for i, c := range k.Children {
		children[i] = c
	}
	m := map[string]any{
		"id":       k.ID,
		"command":  k.Command,
		"children": children,
	}
	if k.ParentID != nil {
		m["parent_id"] = *k.ParentID
	}
	if k.Label != "" {
		m["label"] = k.Label
	}
	if k.Response != nil {
		m["response"] = *k.Response
	}
	if k.Unblessed != nil {
		m["unblessed"] = *k.Unblessed
	}
	if k.Selected != nil {
		m["selected"] = *k.Selected
	}
	return m
}

// BatchMap converts a batch into the generic map form used by MarshalCanonical.
func BatchMap(b Batch) map[string]any {
	updates := make([]any, len(b.Updates))
	for i, k := range b.Updates {
		updates[i] = KnotMap(k)
	}
	removed := make([]any, len(b.RemovedIDs))
	for i, id := range b.RemovedIDs {
		removed[i] = id
	}
	m := map[string]any{
		"updates":     updates,
		"removed_ids": removed,
	}
	if b.EnableUndo {
		m["enable_undo"] = true
	}
	if b.EnableRedo {
		m["enable_redo"] = true
	}
	if b.NewID != nil {
		m["new_id"] = *b.NewID
	}
	if b.Title != "" {
		m["title"] = b.Title
	}
	return m
}

// toCanonicalValue lowers domain types to string/int64/bool/[]any/map[string]any.
func toCanonicalValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string, int64, bool:
		return val, nil
	case int:
		return int64(val), nil
	case Category:
		return string(val), nil
	case Knot:
		return KnotMap(val), nil
	case Knots:
		out := make([]any, 0, len(val))
		for _, id := range val.SortedIDs() {
			out = append(out, KnotMap(val[id]))
		}
		return out, nil
	case Batch:
		return BatchMap(val), nil
	case LabelEntry:
		return map[string]any{"label": val.Label, "id": val.ID}, nil
	case []LabelEntry:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = map[string]any{"label": e.Label, "id": e.ID}
		}
		return out, nil
	case []int64:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			c, err := toCanonicalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			c, err := toCanonicalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			out[k] = c
		}
		return out, nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case string:
		writeCanonicalString(buf, val)
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes s NFC-normalized, escaping only the quote,
// backslash, and control characters below U+0020.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's default string comparison uses UTF-8, which orders supplementary
// plane characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

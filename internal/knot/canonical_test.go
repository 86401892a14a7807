package knot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"bool", true, "true"},
		{"category", CategoryNew, `"new"`},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"ids", []int64{3, 1, 2}, "[3,1,2]"},
		{"label entry", LabelEntry{Label: "START", ID: 1}, `{"id":1,"label":"START"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = MarshalCanonical(map[string]any{"x": struct{}{}})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalEscapes(t *testing.T) {
	result, err := MarshalCanonical("line\n\"quoted\"\\\x01")
	require.NoError(t, err)
	assert.Equal(t, `"line\n\"quoted\"\\\u0001"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to precomposed U+00E9.
	result, err := MarshalCanonical("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(result))
}

func TestMarshalCanonicalKnot(t *testing.T) {
	k := Knot{
		ID:        1,
		ParentID:  Int64(0),
		Command:   "go north",
		Response:  String("You go north."),
		Unblessed: String("You can't."),
		Children:  []int64{},
	}

	result, err := MarshalCanonical(k)
	require.NoError(t, err)
	assert.Equal(t,
		`{"children":[],"command":"go north","id":1,"parent_id":0,"response":"You go north.","unblessed":"You can't."}`,
		string(result))
}

func TestMarshalCanonicalRootOmitsParent(t *testing.T) {
	root := Knot{ID: 0, Label: "START", Children: []int64{1}, Selected: Int64(1)}

	result, err := MarshalCanonical(root)
	require.NoError(t, err)
	assert.Equal(t, `{"children":[1],"command":"","id":0,"label":"START","selected":1}`, string(result))
}

func TestMarshalCanonicalKnotsOrderedByID(t *testing.T) {
	ks := Knots{
		2: {ID: 2, ParentID: Int64(0), Command: "b", Response: String("B")},
		0: {ID: 0, Children: []int64{2}},
	}

	result, err := MarshalCanonical(ks)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"children":[2],"command":"","id":0},{"children":[],"command":"b","id":2,"parent_id":0,"response":"B"}]`,
		string(result))
}

func TestMarshalCanonicalBatch(t *testing.T) {
	b := Batch{
		RemovedIDs: []int64{4},
		EnableUndo: true,
		NewID:      Int64(7),
	}

	result, err := MarshalCanonical(b)
	require.NoError(t, err)
	assert.Equal(t, `{"enable_undo":true,"new_id":7,"removed_ids":[4],"updates":[]}`, string(result))
}

func TestCompareKeysRFC8785(t *testing.T) {
	// U+FB01 is above the surrogate range in UTF-16 but below 4-byte UTF-8;
	// U+1F600 encodes as surrogates (0xD83D...) and sorts before it in UTF-16.
	assert.Less(t, compareKeysRFC8785("\U0001F600", "ﬁ"), 0)
	assert.Less(t, compareKeysRFC8785("a", "b"), 0)
	assert.Equal(t, 0, compareKeysRFC8785("same", "same"))
}

package store

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/roach88/skein/internal/knot"
)

// marshalBatch converts a batch to JSON TEXT for storage.
// Text is stored as applied; only the digest is computed over the
// canonical form, so a restored batch matches the live one byte for byte.
func marshalBatch(b knot.Batch) (string, error) {
	if b.Updates == nil {
		b.Updates = []knot.Knot{}
	}
	if b.RemovedIDs == nil {
		b.RemovedIDs = []int64{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	return string(data), nil
}

// unmarshalBatch parses a stored batch body.
func unmarshalBatch(body string) (knot.Batch, error) {
	var b knot.Batch
	if err := json.Unmarshal([]byte(body), &b); err != nil {
		return knot.Batch{}, fmt.Errorf("unmarshal batch: %w", err)
	}
	for i := range b.Updates {
		if b.Updates[i].Children == nil {
			b.Updates[i].Children = []int64{}
		}
	}
	if b.RemovedIDs == nil {
		b.RemovedIDs = []int64{}
	}
	return b, nil
}

// marshalChildren stores an ordered child list as a JSON array.
func marshalChildren(children []int64) (string, error) {
	if children == nil {
		children = []int64{}
	}
	data, err := json.Marshal(children)
	if err != nil {
		return "", fmt.Errorf("marshal children: %w", err)
	}
	return string(data), nil
}

// unmarshalChildren parses a stored child list. Never returns nil.
func unmarshalChildren(s string) ([]int64, error) {
	children := []int64{}
	if s == "" {
		return children, nil
	}
	if err := json.Unmarshal([]byte(s), &children); err != nil {
		return nil, fmt.Errorf("unmarshal children: %w", err)
	}
	if children == nil {
		children = []int64{}
	}
	return children, nil
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

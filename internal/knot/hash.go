package knot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainBatch    = "skein/batch/v1"
	DomainSnapshot = "skein/snapshot/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BatchDigest computes the content digest of a batch.
// Identical batches always produce identical digests.
func BatchDigest(b Batch) (string, error) {
	canonical, err := MarshalCanonical(b)
	if err != nil {
		return "", fmt.Errorf("BatchDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBatch, canonical), nil
}

// SnapshotDigest computes the content digest of a whole store snapshot.
// Used to check that replaying a batch log is deterministic.
func SnapshotDigest(ks Knots) (string, error) {
	canonical, err := MarshalCanonical(ks)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// MustBatchDigest is like BatchDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBatchDigest(b Batch) string {
	d, err := BatchDigest(b)
	if err != nil {
		panic(err)
	}
	return d
}

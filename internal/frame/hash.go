package frame

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSignature   = "insight/signature/v1"
	DomainFingerprint = "insight/fingerprint/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SignatureHash computes the content-addressed hash of a query signature.
// Two semantically equal signatures hash identically even when built
// independently, because the canonical encoding fixes key order.
func SignatureHash(fields map[string]any) (string, error) {
	canonical, err := MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("SignatureHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSignature, canonical), nil
}

// Fingerprint computes the stable fingerprint of a materialized result:
// a hash over (row count, sort spec, resolution, dataset version).
//
// Two MaterializedResults that are semantically equal fingerprint
// identically even if recomputed independently, which lets downstream
// consumers detect "nothing to do" without content comparison.
func Fingerprint(rowCount int, sortColumn string, dir Direction, resolution int, datasetVersion string) (string, error) {
	obj := map[string]any{
		"row_count":       rowCount,
		"sort_column":     sortColumn,
		"sort_direction":  string(dir),
		"resolution":      resolution,
		"dataset_version": datasetVersion,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFingerprint, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(rowCount int, sortColumn string, dir Direction, resolution int, datasetVersion string) string {
	fp, err := Fingerprint(rowCount, sortColumn, dir, resolution, datasetVersion)
	if err != nil {
		panic(err)
	}
	return fp
}

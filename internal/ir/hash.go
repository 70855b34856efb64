package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainTerm   = "sieve/term/v1"
	DomainResult = "sieve/result/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TermID computes the identity of a term from its kind, the IDs of its
// ordered inputs, and its ordered parameters. Parameters may be any value
// FromGo accepts.
func TermID(kind string, inputIDs []string, params ...any) (string, error) {
	ps := make(List, len(params))
	for i, p := range params {
		v, err := FromGo(p)
		if err != nil {
			return "", fmt.Errorf("TermID: param %d: %w", i, err)
		}
		ps[i] = v
	}
	inputs := make(List, len(inputIDs))
	for i, id := range inputIDs {
		inputs[i] = String(id)
	}

	canonical, err := MarshalCanonical(Object{
		"kind":   String(kind),
		"inputs": inputs,
		"params": ps,
	})
	if err != nil {
		return "", fmt.Errorf("TermID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTerm, canonical), nil
}

// ResultKey computes the cache key for a term's materialized result over a
// particular input panel, identified by its fingerprint.
func ResultKey(termID, fingerprint string) string {
	canonical, err := MarshalCanonical(Object{
		"term":        String(termID),
		"fingerprint": String(fingerprint),
	})
	if err != nil {
		// Two plain strings always marshal.
		panic(err)
	}
	return hashWithDomain(DomainResult, canonical)
}

// MustTermID is like TermID but panics on error.
// Use only in tests or when params are known to be valid.
func MustTermID(kind string, inputIDs []string, params ...any) string {
	id, err := TermID(kind, inputIDs, params...)
	if err != nil {
		panic(err)
	}
	return id
}

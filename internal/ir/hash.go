package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashes.
// Version suffix enables future algorithm migration.
const (
	DomainRound    = "bapdd/round/v1"
	DomainElection = "bapdd/election/v1"
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

// RoundHash identifies a round by its inputs and the state it produced.
// Same inputs into the same configuration always give the same hash.
func RoundHash(r RoundRecord) (string, error) {
	canonical, err := MarshalCanonical(canonicalRound(r))
	if err != nil {
		return "", fmt.Errorf("RoundHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRound, canonical), nil
}

// ElectionHash identifies an election by its subgroups and outcome.
func ElectionHash(e ElectionRecord) (string, error) {
	canonical, err := MarshalCanonical(canonicalElection(e))
	if err != nil {
		return "", fmt.Errorf("ElectionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainElection, canonical), nil
}

// MustRoundHash is like RoundHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRoundHash(r RoundRecord) string {
	h, err := RoundHash(r)
	if err != nil {
		panic(err)
	}
	return h
}

// MustElectionHash is like ElectionHash but panics on error.
func MustElectionHash(e ElectionRecord) string {
	h, err := ElectionHash(e)
	if err != nil {
		panic(err)
	}
	return h
}

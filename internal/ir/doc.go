// Package ir defines the journal records of a BAP-DD run and their canonical
// serialization.
//
// Records (RunRecord, RoundRecord, ElectionRecord) are what the journal stores
// and what replay recomputes. Each round and election carries a content hash
// computed over canonical JSON, so two runs fed the same inputs produce
// byte-identical hashes.
//
// Key design constraints:
//   - Canonical JSON forbids raw floats; float64 values are encoded as their
//     shortest round-trip decimal string (FloatString) before hashing
//   - Object keys are ordered by UTF-16 code units, strings are NFC normalized
//   - Ordering uses seq (logical), never wall-clock time
//   - All JSON tags use snake_case
package ir

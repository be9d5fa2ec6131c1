package ir

// Version constants for journal records and the engine.
const (
	// SchemaVersion is the journal record schema version.
	SchemaVersion = "1"

	// EngineVersion is the BAP-DD engine version.
	EngineVersion = "0.1.0"
)

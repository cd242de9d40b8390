package ir

// Version constants for the genome schema and engine.
const (
	// GenomeVersion is the genome schema version.
	GenomeVersion = "1"

	// EngineVersion is the firegraph engine version.
	EngineVersion = "0.1.0"
)

package ir

// Version constants for the packed encoding and the engine.
const (
	// EncodingVersion identifies the packed token layout (sentinel chunk,
	// 7-bit operator, 57-bit operand).
	EncodingVersion = "1"

	// EngineVersion is the memelang engine version.
	EngineVersion = "0.1.0"
)

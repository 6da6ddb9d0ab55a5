package constants

// Centralized threshold values used across the application.
// These are not configuration knobs; use pkg/config for env-driven settings.

const (
	// Matching defaults, overridden by CORROBORATE_WITHIN_FEET / NEAR_MATCH_SIMILARITY
	// and the YAML rules file.
	CorroborateWithinFeetDefault = 500
	NearMatchSimilarityDefault   = 0.85

	// Upper bound on same city/state/zip rows scanned for near matches.
	NearMatchCandidateLimit = 200

	// Batch reconciliation
	ReconcileConcurrencyDefault = 8
	ReconcileBatchMaxItems      = 500

	// Circuit breaker rate threshold for the OCR extractor
	ScannerCircuitFailureRate = 0.5

	// Request body cap for JSON endpoints
	MaxRequestBodyBytes = 1 << 20
)

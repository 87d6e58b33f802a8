package testrides

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
)

// Runner configuration constants.
const (
	AnalysisPollInterval = 500 * time.Millisecond
	AnalysisPollDeadline = 2 * time.Minute
	PercentageMultiplier = 100
)

// Verification tolerance constants.
const (
	fractionSumTolerance = 1e-6
)

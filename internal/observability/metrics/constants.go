// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Stage labels for rmsmeter_errors_total
const (
	// StageRead is the block reader.
	StageRead = "read"
	// StagePace is the pacing sleep.
	StagePace = "pace"
	// StageReport is the output writer.
	StageReport = "report"
)

const (
	// ShutdownTimeout is the timeout for graceful shutdown operations.
	ShutdownTimeout = 5 * time.Second
)

package schemas

import "time"

// -- Run & Report Schemas --

// Environment describes the host the run executed under.
type Environment struct {
	EngineVersion  string `json:"engineVersion"`
	ViewportWidth  int    `json:"viewportWidth"`
	ViewportHeight int    `json:"viewportHeight"`
}

// RunConfig is the effective configuration of a run, echoed into the report
// so the snapshot is interpretable on its own.
type RunConfig struct {
	MaxIterations          int    `json:"maxIterations"`
	SettleIntervalMs       int64  `json:"settleIntervalMs"`
	Debug                  bool   `json:"debug"`
	TriggerSelectorVersion string `json:"triggerSelectorVersion"`
}

// Snapshot is the in-memory result of one exploration run: metadata, the
// ordered element records and the ordered error log.
type Snapshot struct {
	RunID       string      `json:"runId"`
	URL         string      `json:"url,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
	DurationMs  int64       `json:"durationMs"`
	Environment Environment `json:"environment"`
	Config      RunConfig   `json:"config"`

	Elements []CapturedElement `json:"elements"`
	Errors   []ErrorRecord     `json:"errors"`

	// TriggerCount is the number of triggers actually delegated to the
	// interactor; IterationCount counts every dequeue attempt, including
	// skips of disconnected or already-done nodes.
	TriggerCount   int  `json:"triggerCount"`
	IterationCount int  `json:"iterationCount"`
	CeilingHit     bool `json:"ceilingHit"`
}

// Stats aggregates a snapshot's elements.
type Stats struct {
	TotalElements int            `json:"totalElements"`
	ByTag         map[string]int `json:"byTag"`
	ByType        map[string]int `json:"byType"`
	Interactive   int            `json:"interactive"`
	FormFields    int            `json:"formFields"`
	Required      int            `json:"required"`
	Disabled      int            `json:"disabled"`
	Visible       int            `json:"visible"`
}

// Report is the exported form of a snapshot: the snapshot itself plus the
// aggregate statistics computed by the report builder.
type Report struct {
	Snapshot
	Stats Stats `json:"stats"`
}

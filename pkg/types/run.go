// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of a harvest run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// HarvestRun is the bookkeeping row for one invocation of the harvester.
type HarvestRun struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	Category    string     `json:"category" yaml:"category"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	StartCursor Cursor     `json:"start_cursor" yaml:"start_cursor"`
	FinalCursor Cursor     `json:"final_cursor" yaml:"final_cursor"`
	Records     int        `json:"records" yaml:"records"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Checkpoint is the stored cursor of one category.
type Checkpoint struct {
	Category  string    `json:"category" yaml:"category"`
	Cursor    Cursor    `json:"cursor" yaml:"cursor"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

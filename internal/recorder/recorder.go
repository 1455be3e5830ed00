// Package recorder keeps a local audit journal of committed operations and
// sweep runs, separate from the transactional store.
package recorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation is one committed money-moving operation.
type Operation struct {
	OperationID string
	Kind        string
	UserID      uint64
	MachineID   uuid.UUID
	Amount      decimal.Decimal
	Details     map[string]any
	At          time.Time
}

// SweepRun summarizes one pass of a background sweep.
type SweepRun struct {
	Kind       string
	Scanned    int
	Succeeded  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

type Recorder interface {
	RecordOperation(op *Operation) error
	RecordSweep(run *SweepRun) error
	Close() error
}

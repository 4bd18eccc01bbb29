package match

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome is how a match ended.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
)

// Result is the final record of a match.
type Result struct {
	MatchID  uuid.UUID  `json:"match_id"`
	Fighters [2]Loadout `json:"fighters"`
	Outcome  Outcome    `json:"outcome"`
	// Winner is the winning slot, 1 or 2, and 0 on a draw.
	Winner     int           `json:"winner"`
	HP         [2]float64    `json:"hp"`
	Ticks      int           `json:"ticks"`
	Simulated  time.Duration `json:"simulated"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// ResultStore persists finished matches.
type ResultStore interface {
	SaveResult(ctx context.Context, r Result) error
}

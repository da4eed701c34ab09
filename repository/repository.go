// Package repository is the single boundary between the pipeline and
// persistent storage: a capability-set interface steps depend on
// narrowly, backed by a SQLite implementation in WAL mode.
package repository

import (
	"context"

	"blundertutor/models"
)

// Repository is the full capability set the pipeline, its steps, and the
// bulk coordinator use. Individual steps should still only call the
// methods they actually need — the interface is kept as one set because
// the sqlite-backed implementation shares a single connection and
// transaction discipline across all of them.
type Repository interface {
	// LoadGame returns the stored Game, including its PGN text.
	LoadGame(ctx context.Context, gameID string) (*models.Game, error)

	// SaveGame inserts or replaces a fetched Game.
	SaveGame(ctx context.Context, game *models.Game) error

	// AnalysisExists reports whether an AnalysisRecord row already exists
	// for gameID — the authoritative per-game skip check the bulk
	// coordinator uses, independent of individual step completion.
	AnalysisExists(ctx context.Context, gameID string) (bool, error)

	// IsStepCompleted reports whether (gameID, stepID) has a completion
	// row, i.e. whether the executor may skip that step.
	IsStepCompleted(ctx context.Context, gameID, stepID string) (bool, error)

	// MarkStepCompleted records that (gameID, stepID) finished
	// successfully. Must be called only after the step's durable side
	// effects (if any) have been flushed.
	MarkStepCompleted(ctx context.Context, gameID, stepID string) error

	// ClearStepStatus deletes every completion row for gameID, used by
	// force_rerun to make every step in the requested set re-execute.
	ClearStepStatus(ctx context.Context, gameID string) error

	// WriteAnalysis upserts the AnalysisRecord and replaces every
	// MoveRecord row for the game in a single transaction: the write
	// step's one durable side effect.
	WriteAnalysis(ctx context.Context, record models.AnalysisRecord, moves []models.MoveRecord) error

	// UpdateGameECO patches just the eco_code/eco_name columns of an
	// existing AnalysisRecord, used by the eco-only backfill preset when
	// a full write hasn't run yet (the record may not exist; in that case
	// this is a no-op until a full write step creates the row).
	UpdateGameECO(ctx context.Context, gameID string, ecoCode, ecoName *string) error

	// MarkGameAnalyzed flips the games.analyzed flag.
	MarkGameAnalyzed(ctx context.Context, gameID string) error

	// LoadMoveRecords returns the currently persisted MoveRecords for a
	// game, ordered by ply. Steps whose dependency was skipped (already
	// completed in an earlier run, so its in-memory result carries no
	// data this run) use this to rehydrate what they need instead of
	// recomputing it, which is what makes backfill presets and
	// crash-resumption produce byte-identical output without redoing
	// engine work.
	LoadMoveRecords(ctx context.Context, gameID string) ([]models.MoveRecord, error)

	// LoadAnalysisECO returns the eco_code/eco_name columns of an
	// existing AnalysisRecord, or (nil, nil, nil) if no record exists
	// yet. Used for the same rehydration purpose as LoadMoveRecords when
	// the eco step was skipped.
	LoadAnalysisECO(ctx context.Context, gameID string) (ecoCode, ecoName *string, err error)

	// ListUnanalyzedGameIDs returns game ids matching the optional
	// source/username filter, oldest first, capped at limit when > 0.
	ListUnanalyzedGameIDs(ctx context.Context, source *models.Source, username *string, limit int) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}

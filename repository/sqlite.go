package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"blundertutor/models"
)

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository backs Repository with a single SQLite connection in
// WAL mode, matching the reference analysis layer's connection setup:
// one connection, a busy timeout rather than application-level locking,
// and NORMAL synchronous durability (safe under WAL, faster than FULL).
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates (or reuses) the SQLite file at path and applies the
// pragmas the reference implementation relies on.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repository: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("repository: apply %q: %w", pragma, err)
		}
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	username TEXT NOT NULL,
	white TEXT NOT NULL,
	black TEXT NOT NULL,
	result TEXT NOT NULL,
	end_time_utc TEXT NOT NULL,
	time_control TEXT NOT NULL,
	pgn TEXT NOT NULL,
	analyzed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS analysis_games (
	game_id TEXT PRIMARY KEY REFERENCES games(id),
	pgn_path TEXT NOT NULL DEFAULT '',
	analyzed_at TEXT NOT NULL,
	engine_path TEXT NOT NULL,
	depth INTEGER NOT NULL DEFAULT 0,
	time_limit REAL,
	inaccuracy INTEGER NOT NULL,
	mistake INTEGER NOT NULL,
	blunder INTEGER NOT NULL,
	eco_code TEXT,
	eco_name TEXT
);

CREATE TABLE IF NOT EXISTS analysis_moves (
	game_id TEXT NOT NULL REFERENCES games(id),
	ply INTEGER NOT NULL,
	move_number INTEGER NOT NULL,
	player INTEGER NOT NULL,
	uci TEXT NOT NULL,
	san TEXT NOT NULL,
	eval_before INTEGER NOT NULL,
	eval_after INTEGER NOT NULL,
	delta INTEGER NOT NULL,
	cp_loss INTEGER NOT NULL,
	classification INTEGER NOT NULL,
	best_move_uci TEXT,
	best_move_san TEXT,
	best_line TEXT,
	best_move_eval INTEGER NOT NULL,
	game_phase INTEGER NOT NULL,
	tactical_pattern INTEGER,
	tactical_reason TEXT,
	difficulty REAL,
	PRIMARY KEY (game_id, ply)
);

CREATE TABLE IF NOT EXISTS analysis_step_status (
	game_id TEXT NOT NULL REFERENCES games(id),
	step_id TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	PRIMARY KEY (game_id, step_id)
);
`
	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) LoadGame(ctx context.Context, gameID string) (*models.Game, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, source, username, white, black, result, end_time_utc, time_control, pgn, analyzed FROM games WHERE id = ?`, gameID)

	var g models.Game
	var endTime string
	var analyzed int
	if err := row.Scan(&g.ID, &g.Source, &g.Username, &g.White, &g.Black, &g.Result, &endTime, &g.TimeControl, &g.PGN, &analyzed); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("repository: game %q not found", gameID)
		}
		return nil, fmt.Errorf("repository: load game %q: %w", gameID, err)
	}
	t, err := time.Parse(time.RFC3339, endTime)
	if err == nil {
		g.EndTimeUTC = t
	}
	g.Analyzed = analyzed != 0
	return &g, nil
}

func (r *SQLiteRepository) SaveGame(ctx context.Context, game *models.Game) error {
	analyzed := 0
	if game.Analyzed {
		analyzed = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO games (id, source, username, white, black, result, end_time_utc, time_control, pgn, analyzed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source, username=excluded.username, white=excluded.white,
			black=excluded.black, result=excluded.result, end_time_utc=excluded.end_time_utc,
			time_control=excluded.time_control, pgn=excluded.pgn, analyzed=excluded.analyzed`,
		game.ID, game.Source, game.Username, game.White, game.Black, game.Result,
		game.EndTimeUTC.UTC().Format(time.RFC3339), game.TimeControl, game.PGN, analyzed)
	if err != nil {
		return fmt.Errorf("repository: save game %q: %w", game.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) AnalysisExists(ctx context.Context, gameID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM analysis_games WHERE game_id = ?`, gameID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("repository: analysis exists %q: %w", gameID, err)
	}
	return count > 0, nil
}

func (r *SQLiteRepository) IsStepCompleted(ctx context.Context, gameID, stepID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM analysis_step_status WHERE game_id = ? AND step_id = ?`, gameID, stepID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("repository: is step completed (%q,%q): %w", gameID, stepID, err)
	}
	return count > 0, nil
}

func (r *SQLiteRepository) MarkStepCompleted(ctx context.Context, gameID, stepID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_step_status (game_id, step_id, completed_at) VALUES (?, ?, ?)
		ON CONFLICT(game_id, step_id) DO UPDATE SET completed_at=excluded.completed_at`,
		gameID, stepID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("repository: mark step completed (%q,%q): %w", gameID, stepID, err)
	}
	return nil
}

func (r *SQLiteRepository) ClearStepStatus(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analysis_step_status WHERE game_id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("repository: clear step status %q: %w", gameID, err)
	}
	return nil
}

func (r *SQLiteRepository) WriteAnalysis(ctx context.Context, record models.AnalysisRecord, moves []models.MoveRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: write analysis begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_games (game_id, pgn_path, analyzed_at, engine_path, depth, time_limit, inaccuracy, mistake, blunder, eco_code, eco_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			pgn_path=excluded.pgn_path, analyzed_at=excluded.analyzed_at, engine_path=excluded.engine_path,
			depth=excluded.depth, time_limit=excluded.time_limit, inaccuracy=excluded.inaccuracy,
			mistake=excluded.mistake, blunder=excluded.blunder, eco_code=excluded.eco_code, eco_name=excluded.eco_name`,
		record.GameID, record.PGNPath, record.AnalyzedAt.UTC().Format(time.RFC3339), record.EnginePath,
		record.Depth, record.TimeLimit, record.Thresholds.Inaccuracy, record.Thresholds.Mistake,
		record.Thresholds.Blunder, record.ECOCode, record.ECOName)
	if err != nil {
		return fmt.Errorf("repository: upsert analysis_games: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_moves WHERE game_id = ?`, record.GameID); err != nil {
		return fmt.Errorf("repository: delete prior analysis_moves: %w", err)
	}

	for _, mv := range moves {
		var pattern *int
		if mv.TacticalPattern != nil {
			v := int(*mv.TacticalPattern)
			pattern = &v
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO analysis_moves (
				game_id, ply, move_number, player, uci, san, eval_before, eval_after, delta, cp_loss,
				classification, best_move_uci, best_move_san, best_line, best_move_eval, game_phase,
				tactical_pattern, tactical_reason, difficulty
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			mv.GameID, mv.Ply, mv.MoveNumber, mv.Player, mv.UCI, mv.SAN, mv.EvalBefore, mv.EvalAfter,
			mv.Delta, mv.CPLoss, int(mv.Classification), nullIfEmpty(mv.BestMoveUCI), nullIfEmpty(mv.BestMoveSAN),
			nullIfEmpty(mv.BestLine), mv.BestMoveEval, int(mv.GamePhase), pattern, mv.TacticalReason, mv.Difficulty)
		if err != nil {
			return fmt.Errorf("repository: insert analysis_moves ply %d: %w", mv.Ply, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) UpdateGameECO(ctx context.Context, gameID string, ecoCode, ecoName *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE analysis_games SET eco_code = ?, eco_name = ? WHERE game_id = ?`, ecoCode, ecoName, gameID)
	if err != nil {
		return fmt.Errorf("repository: update eco %q: %w", gameID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil
	}
	return nil
}

func (r *SQLiteRepository) LoadAnalysisECO(ctx context.Context, gameID string) (*string, *string, error) {
	var ecoCode, ecoName sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT eco_code, eco_name FROM analysis_games WHERE game_id = ?`, gameID).Scan(&ecoCode, &ecoName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("repository: load analysis eco %q: %w", gameID, err)
	}
	var codePtr, namePtr *string
	if ecoCode.Valid {
		codePtr = &ecoCode.String
	}
	if ecoName.Valid {
		namePtr = &ecoName.String
	}
	return codePtr, namePtr, nil
}

func (r *SQLiteRepository) LoadMoveRecords(ctx context.Context, gameID string) ([]models.MoveRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ply, move_number, player, uci, san, eval_before, eval_after, delta, cp_loss,
			classification, best_move_uci, best_move_san, best_line, best_move_eval, game_phase,
			tactical_pattern, tactical_reason, difficulty
		FROM analysis_moves WHERE game_id = ? ORDER BY ply ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("repository: load move records %q: %w", gameID, err)
	}
	defer rows.Close()

	var out []models.MoveRecord
	for rows.Next() {
		var mv models.MoveRecord
		mv.GameID = gameID
		var bestUCI, bestSAN, bestLine, tacticalReason sql.NullString
		var pattern sql.NullInt64
		var difficulty sql.NullFloat64
		var classification, phase int
		if err := rows.Scan(&mv.Ply, &mv.MoveNumber, &mv.Player, &mv.UCI, &mv.SAN, &mv.EvalBefore, &mv.EvalAfter,
			&mv.Delta, &mv.CPLoss, &classification, &bestUCI, &bestSAN, &bestLine, &mv.BestMoveEval, &phase,
			&pattern, &tacticalReason, &difficulty); err != nil {
			return nil, fmt.Errorf("repository: scan move record %q: %w", gameID, err)
		}
		mv.Classification = models.MoveClassification(classification)
		mv.GamePhase = models.GamePhase(phase)
		mv.BestMoveUCI = bestUCI.String
		mv.BestMoveSAN = bestSAN.String
		mv.BestLine = bestLine.String
		if pattern.Valid {
			p := models.TacticalPattern(pattern.Int64)
			mv.TacticalPattern = &p
		}
		if tacticalReason.Valid {
			mv.TacticalReason = &tacticalReason.String
		}
		if difficulty.Valid {
			mv.Difficulty = &difficulty.Float64
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkGameAnalyzed(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE games SET analyzed = 1 WHERE id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("repository: mark game analyzed %q: %w", gameID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListUnanalyzedGameIDs(ctx context.Context, source *models.Source, username *string, limit int) ([]string, error) {
	var clauses []string
	var args []any
	clauses = append(clauses, "analyzed = 0")
	if source != nil {
		clauses = append(clauses, "source = ?")
		args = append(args, *source)
	}
	if username != nil {
		clauses = append(clauses, "username = ?")
		args = append(args, *username)
	}

	query := "SELECT id FROM games WHERE " + strings.Join(clauses, " AND ") + " ORDER BY end_time_utc ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: list unanalyzed game ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository: scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"blundertutor/models"
)

var _ Repository = (*Fake)(nil)

// Fake is an in-memory Repository for unit tests that exercise the
// pipeline executor and coordinator without a real database.
type Fake struct {
	mu sync.Mutex

	games      map[string]*models.Game
	analysis   map[string]models.AnalysisRecord
	moves      map[string][]models.MoveRecord
	stepStatus map[string]map[string]time.Time
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		games:      make(map[string]*models.Game),
		analysis:   make(map[string]models.AnalysisRecord),
		moves:      make(map[string][]models.MoveRecord),
		stepStatus: make(map[string]map[string]time.Time),
	}
}

func (f *Fake) Close() error { return nil }

func (f *Fake) PutGame(g *models.Game) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	f.games[g.ID] = &cp
}

func (f *Fake) LoadGame(ctx context.Context, gameID string) (*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[gameID]
	if !ok {
		return nil, fmt.Errorf("repository: game %q not found", gameID)
	}
	cp := *g
	return &cp, nil
}

func (f *Fake) SaveGame(ctx context.Context, game *models.Game) error {
	f.PutGame(game)
	return nil
}

func (f *Fake) AnalysisExists(ctx context.Context, gameID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.analysis[gameID]
	return ok, nil
}

func (f *Fake) IsStepCompleted(ctx context.Context, gameID, stepID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps, ok := f.stepStatus[gameID]
	if !ok {
		return false, nil
	}
	_, done := steps[stepID]
	return done, nil
}

func (f *Fake) MarkStepCompleted(ctx context.Context, gameID, stepID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps, ok := f.stepStatus[gameID]
	if !ok {
		steps = make(map[string]time.Time)
		f.stepStatus[gameID] = steps
	}
	steps[stepID] = time.Now()
	return nil
}

func (f *Fake) ClearStepStatus(ctx context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stepStatus, gameID)
	return nil
}

func (f *Fake) WriteAnalysis(ctx context.Context, record models.AnalysisRecord, moves []models.MoveRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analysis[record.GameID] = record
	cp := append([]models.MoveRecord{}, moves...)
	f.moves[record.GameID] = cp
	return nil
}

func (f *Fake) UpdateGameECO(ctx context.Context, gameID string, ecoCode, ecoName *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.analysis[gameID]
	if !ok {
		return nil
	}
	rec.ECOCode = ecoCode
	rec.ECOName = ecoName
	f.analysis[gameID] = rec
	return nil
}

func (f *Fake) LoadAnalysisECO(ctx context.Context, gameID string) (*string, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.analysis[gameID]
	if !ok {
		return nil, nil, nil
	}
	return rec.ECOCode, rec.ECOName, nil
}

func (f *Fake) LoadMoveRecords(ctx context.Context, gameID string) ([]models.MoveRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MoveRecord{}, f.moves[gameID]...), nil
}

func (f *Fake) MarkGameAnalyzed(ctx context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.games[gameID]; ok {
		g.Analyzed = true
	}
	return nil
}

func (f *Fake) ListUnanalyzedGameIDs(ctx context.Context, source *models.Source, username *string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, g := range f.games {
		if g.Analyzed {
			continue
		}
		if source != nil && g.Source != *source {
			continue
		}
		if username != nil && g.Username != *username {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return f.games[ids[i]].EndTimeUTC.Before(f.games[ids[j]].EndTimeUTC)
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Analysis exposes the stored AnalysisRecord for assertions.
func (f *Fake) Analysis(gameID string) (models.AnalysisRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.analysis[gameID]
	return rec, ok
}

// Moves exposes the stored MoveRecords for assertions.
func (f *Fake) Moves(gameID string) []models.MoveRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MoveRecord{}, f.moves[gameID]...)
}

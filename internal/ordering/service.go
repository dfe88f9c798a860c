package ordering

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/internal/media"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

type store interface {
	List(tx *gorm.DB, ownerID uuid.UUID, category *enums.MediaCategory) ([]models.MediaItem, error)
	UpdateCategories(tx *gorm.DB, ownerID uuid.UUID, changes []media.CategoryChange) (int, error)
	ApplyPositions(tx *gorm.DB, ownerID uuid.UUID, positions []media.Position) error
}

// Result summarizes a reorder.
type Result struct {
	Updated       int
	Recategorized int
	Skipped       []uuid.UUID
}

// Service rewrites an owner's manual order. Positions are global across categories.
type Service struct {
	store store
}

func NewService(s store) (*Service, error) {
	if s == nil {
		return nil, fmt.Errorf("media store required")
	}
	return &Service{store: s}, nil
}

// Reorder applies the input inside tx. Submitted items owned by ownerID get positions 1..n in
// sequence order; every other owned item follows in its previous relative order. Ids the owner
// does not hold are skipped and reported. Category assignments carried in the batch are all
// written before capacity is checked, so only the final board has to fit the limits. Any
// failure aborts the whole call so the caller's transaction can roll back.
func (s *Service) Reorder(tx *gorm.DB, ownerID uuid.UUID, in Input) (*Result, error) {
	current, err := s.store.List(tx, ownerID, nil)
	if err != nil {
		return nil, err
	}
	owned := make(map[uuid.UUID]*models.MediaItem, len(current))
	for i := range current {
		owned[current[i].ID] = &current[i]
	}

	res := &Result{Skipped: []uuid.UUID{}}
	var sequence []uuid.UUID
	var moves []media.CategoryChange
	for _, step := range in.Steps() {
		item, ok := owned[step.ID]
		if !ok {
			res.Skipped = append(res.Skipped, step.ID)
			continue
		}
		sequence = append(sequence, step.ID)
		if step.Category == nil || item.Category == *step.Category {
			continue
		}
		moves = append(moves, media.CategoryChange{ID: step.ID, Category: *step.Category})
	}

	if len(moves) > 0 {
		changed, err := s.store.UpdateCategories(tx, ownerID, moves)
		if err != nil {
			return nil, err
		}
		res.Recategorized = changed
	}

	positions := Plan(current, sequence)
	if len(positions) > 0 {
		if err := s.store.ApplyPositions(tx, ownerID, positions); err != nil {
			return nil, err
		}
	}
	res.Updated = len(sequence)
	return res, nil
}

// Plan computes new positions for current (already in sort order) given the submitted sequence.
// Only items whose position actually changes are returned.
func Plan(current []models.MediaItem, sequence []uuid.UUID) []media.Position {
	next := make(map[uuid.UUID]int, len(current))
	pos := 1
	for _, id := range sequence {
		if _, dup := next[id]; dup {
			continue
		}
		next[id] = pos
		pos++
	}
	for _, item := range current {
		if _, placed := next[item.ID]; placed {
			continue
		}
		next[item.ID] = pos
		pos++
	}

	var out []media.Position
	for _, item := range current {
		if p := next[item.ID]; p != item.SortPosition {
			out = append(out, media.Position{ID: item.ID, SortPosition: p})
		}
	}
	return out
}

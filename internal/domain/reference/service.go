package reference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rah/rah/internal/platform/genai"
)

var (
	// ErrNotFound reports that no catalog entry exists for the id.
	ErrNotFound = errors.New("rah item not found")
	// ErrGenerationUnavailable reports that no generator is configured.
	ErrGenerationUnavailable = errors.New("description generation unavailable")
)

// Service provides catalog management for RAH items and programs.
type Service struct {
	rah      RahRepository
	programs ProgramRepository
	gen      genai.Generator
	logger   zerolog.Logger
}

// NewService creates a new reference service. gen may be nil, which
// disables description generation.
func NewService(rah RahRepository, programs ProgramRepository, gen genai.Generator, logger zerolog.Logger) *Service {
	return &Service{
		rah:      rah,
		programs: programs,
		gen:      gen,
		logger:   logger.With().Str("component", "reference").Logger(),
	}
}

// NormalizeRahID rounds a raw code to two decimals, the canonical
// precision of the catalog.
func NormalizeRahID(raw float64) float64 {
	return math.Round(raw*100) / 100
}

// ValidateRahID checks that the code's integer part names a known
// physiology program and the fractional part fits two decimals.
func ValidateRahID(raw float64) error {
	if raw <= 0 {
		return fmt.Errorf("rah_id must be positive, got %v", raw)
	}
	id := NormalizeRahID(raw)
	program := int(id)
	if !ValidProgramCode(program) {
		return fmt.Errorf("rah_id %.2f does not belong to a known physiology program", id)
	}
	return nil
}

// ListRah returns a page of catalog entries, optionally filtered by a
// substring match on details or category.
func (s *Service) ListRah(ctx context.Context, q string, limit, offset int) ([]*RahItemSummary, int, error) {
	return s.rah.List(ctx, strings.TrimSpace(q), limit, offset)
}

// GetRah returns a single catalog entry with its full description.
func (s *Service) GetRah(ctx context.Context, rahID float64) (*RahItem, error) {
	return s.rah.GetByID(ctx, NormalizeRahID(rahID))
}

// UpsertRah creates or replaces a catalog entry. When generate is set
// and no description was supplied, a narrative is generated in the
// background of the same call; a generation failure never fails the
// upsert.
func (s *Service) UpsertRah(ctx context.Context, item *RahItem, generate bool) error {
	if err := ValidateRahID(item.RahID); err != nil {
		return err
	}
	if strings.TrimSpace(item.Details) == "" {
		return fmt.Errorf("details is required")
	}
	item.RahID = NormalizeRahID(item.RahID)

	if err := s.rah.Upsert(ctx, item); err != nil {
		return err
	}

	if generate && item.Description == "" && s.gen != nil {
		if err := s.generateDescription(ctx, item); err != nil {
			s.logger.Warn().Err(err).Float64("rah_id", item.RahID).
				Msg("description generation failed, entry saved without one")
		}
	}
	return nil
}

func (s *Service) generateDescription(ctx context.Context, item *RahItem) error {
	prompt := fmt.Sprintf(
		"Write a structured medical narrative (~1000 words) for the following RAH item. "+
			"Use clear sections: Overview, Physiology/Mechanism, Clinical Presentation, "+
			"Differential Considerations, Assessment, and Supportive/Therapeutic Notes.\n\n"+
			"Name: %s\nCategory: %s\n", item.Details, item.Category)

	narrative, err := s.gen.Generate(ctx, prompt, "")
	if err != nil {
		return err
	}
	if err := s.rah.SetDescription(ctx, item.RahID, narrative); err != nil {
		return err
	}
	item.Description = narrative
	return nil
}

// RegenerateDescription replaces the stored narrative for an existing
// entry with a freshly generated one, overwriting any description the
// entry already has.
func (s *Service) RegenerateDescription(ctx context.Context, rahID float64) (*RahItem, error) {
	if s.gen == nil {
		return nil, ErrGenerationUnavailable
	}
	item, err := s.rah.GetByID(ctx, NormalizeRahID(rahID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if err := s.generateDescription(ctx, item); err != nil {
		return nil, fmt.Errorf("description generation failed: %w", err)
	}
	s.logger.Info().Float64("rah_id", item.RahID).Msg("description regenerated")
	return item, nil
}

// DeleteRah removes a catalog entry.
func (s *Service) DeleteRah(ctx context.Context, rahID float64) error {
	return s.rah.Delete(ctx, NormalizeRahID(rahID))
}

// ListPrograms returns all physiology programs ordered by code.
func (s *Service) ListPrograms(ctx context.Context) ([]*PhysiologyProgram, error) {
	return s.programs.List(ctx)
}

// CreateProgram registers a new physiology program.
func (s *Service) CreateProgram(ctx context.Context, p *PhysiologyProgram) error {
	if p.ProgramCode <= 0 {
		return fmt.Errorf("program_code must be positive")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return s.programs.Create(ctx, p)
}

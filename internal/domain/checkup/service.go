package checkup

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/rah/rah/internal/domain/reference"
	"github.com/rah/rah/internal/platform/genai"
)

// Service is the checkup workflow orchestrator. It owns every case
// state transition; handlers only translate its errors to HTTP.
type Service struct {
	cases  CaseRepository
	combos CombinationRepository
	rah    reference.RahRepository
	gen    genai.Generator
	logger zerolog.Logger
}

// NewService creates a new checkup service.
func NewService(cases CaseRepository, combos CombinationRepository, rah reference.RahRepository, gen genai.Generator, logger zerolog.Logger) *Service {
	return &Service{
		cases:  cases,
		combos: combos,
		rah:    rah,
		gen:    gen,
		logger: logger.With().Str("component", "checkup").Logger(),
	}
}

// Start validates a triad, resolves its combination profile from the
// curated table or the generator, and persists a new case in Started
// state. On any failure no case is created.
func (s *Service) Start(ctx context.Context, rahIDs []float64) (*Case, error) {
	if len(rahIDs) != 3 {
		return nil, validationErrorf("exactly 3 RAH IDs are required, got %d", len(rahIDs))
	}
	ids := make([]float64, len(rahIDs))
	for i, raw := range rahIDs {
		if err := reference.ValidateRahID(raw); err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
		ids[i] = reference.NormalizeRahID(raw)
	}

	combo, err := s.combos.FindByKey(ctx, ComboKey(ids))
	if err != nil {
		return nil, storeError("combination lookup failed", err)
	}

	var c *Case
	if combo != nil {
		c = &Case{
			RahIDs:           ids,
			State:            StateStarted,
			Source:           "db",
			CombinationTitle: combo.CombinationTitle,
			AnalysisBlurb:    combo.Analysis,
			Questions:        questionsFromIndications(combo.PotentialIndications),
			Recommendations:  combo.Recommendations,
		}
	} else {
		c, err = s.generateCase(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, storeError("case create failed", err)
	}

	s.logger.Info().Str("case_id", c.CaseID).Str("source", c.Source).
		Floats64("rah_ids", ids).Msg("case started")
	return c, nil
}

// generateCase builds the AI-sourced snapshot for a triad with no
// curated profile. Two generation calls: title+blurb+recommendations,
// then the questionnaire.
func (s *Service) generateCase(ctx context.Context, ids []float64) (*Case, error) {
	descriptions, err := s.rah.Descriptions(ctx, ids)
	if err != nil {
		return nil, storeError("rah lookup failed", err)
	}
	var missing []float64
	for _, id := range ids {
		if strings.TrimSpace(descriptions[id]) == "" {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, validationErrorf("unknown RAH IDs: %v", missing)
	}

	triad := triadContext(ids, descriptions)

	comboReply, err := s.gen.Generate(ctx, comboTitlePrompt(triad), comboTitleSystem)
	if err != nil {
		return nil, generationError("combination synthesis failed", err)
	}
	title, blurb, recommendations := parseComboReply(comboReply)
	if title == "" {
		title = "Combination"
	}

	qReply, err := s.gen.Generate(ctx, questionnairePrompt(triad), questionnaireSystem)
	if err != nil {
		return nil, generationError("questionnaire synthesis failed", err)
	}
	questions, err := parseQuestionnaire(qReply)
	if err != nil || len(questions) == 0 {
		return nil, generationError("questionnaire output unusable", err)
	}

	return &Case{
		RahIDs:           ids,
		State:            StateStarted,
		Source:           "ai",
		CombinationTitle: title,
		AnalysisBlurb:    blurb,
		Questions:        questions,
		Recommendations:  recommendations,
	}, nil
}

// GetCombination returns a curated combination profile by its key.
func (s *Service) GetCombination(ctx context.Context, comboKey string) (*CuratedCombination, error) {
	if strings.TrimSpace(comboKey) == "" {
		return nil, validationErrorf("combo_key is required")
	}
	combo, err := s.combos.FindByKey(ctx, comboKey)
	if err != nil {
		return nil, storeError("combination lookup failed", err)
	}
	if combo == nil {
		return nil, notFoundErrorf("unknown combination %s", comboKey)
	}
	return combo, nil
}

// SaveAnswers overwrites the practitioner's selections and notes.
// Repeated calls with the same inputs are no-ops. Concurrent saves
// race on last-write-wins, which is accepted for this workload.
func (s *Service) SaveAnswers(ctx context.Context, caseID string, selected []string, notes string) error {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return err
	}
	if selected == nil {
		selected = []string{}
	}
	if err := s.cases.SaveAnswers(ctx, caseID, selected, notes, c.State.Advance(StateAnswered)); err != nil {
		return saveCaseError(err, caseID, "save answers failed")
	}
	return nil
}

// Analyze composes the final report. Unsaved answers default to an
// empty selection rather than failing. On generation failure the case
// keeps whatever report it had before.
func (s *Service) Analyze(ctx context.Context, caseID string) (*Case, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	raw, err := s.gen.Generate(ctx, analyzePrompt(c), analyzeSystem)
	if err != nil {
		return nil, generationError("report synthesis failed", err)
	}

	sections := parseSections(raw)
	markdown := RenderMarkdown(sections)

	state := c.State.Advance(StateAnalyzed)
	if err := s.cases.SaveResults(ctx, caseID, sections, markdown, state); err != nil {
		return nil, saveCaseError(err, caseID, "save results failed")
	}

	c.Results = sections
	c.ResultMarkdown = markdown
	c.State = state
	s.logger.Info().Str("case_id", caseID).Msg("case analyzed")
	return c, nil
}

// Translate localizes the report. The original markdown is never
// touched.
func (s *Service) Translate(ctx context.Context, caseID, targetLang string) (*Case, error) {
	if strings.TrimSpace(targetLang) == "" {
		return nil, validationErrorf("target_lang is required")
	}
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.ResultMarkdown == "" {
		return nil, preconditionErrorf("case %s has no report to translate, run analyze first", caseID)
	}

	translated, err := s.gen.Generate(ctx, translatePrompt(targetLang, c.ResultMarkdown), translateSystem)
	if err != nil {
		return nil, generationError("translation failed", err)
	}

	state := c.State.Advance(StateTranslated)
	if err := s.cases.SaveTranslation(ctx, caseID, translated, targetLang, state); err != nil {
		return nil, saveCaseError(err, caseID, "save translation failed")
	}

	c.TranslatedMarkdown = translated
	c.TranslatedLang = targetLang
	c.State = state
	return c, nil
}

// GetCase returns the full case snapshot.
func (s *Service) GetCase(ctx context.Context, caseID string) (*Case, error) {
	return s.getCase(ctx, caseID)
}

// ListHistory returns recent case summaries, newest first.
func (s *Service) ListHistory(ctx context.Context, limit, offset int) ([]*CaseSummary, int, error) {
	summaries, total, err := s.cases.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, 0, storeError("case history failed", err)
	}
	return summaries, total, nil
}

// saveCaseError classifies an UPDATE failure. A row that vanished
// between lookup and save surfaces as not-found, the same answer the
// caller would have gotten a moment later.
func saveCaseError(err error, caseID, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundErrorf("unknown case_id %s", caseID)
	}
	return storeError(msg, err)
}

func (s *Service) getCase(ctx context.Context, caseID string) (*Case, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, validationErrorf("case_id is required")
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, storeError("case lookup failed", err)
	}
	if c == nil {
		return nil, notFoundErrorf("unknown case_id %s", caseID)
	}
	return c, nil
}

package checkup

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/rah/rah/internal/domain/reference"
)

// --------- mocks ---------

type mockCaseRepo struct {
	cases     map[string]*Case
	nextID    int
	createErr error
	saveErr   error
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{cases: make(map[string]*Case)}
}

func (m *mockCaseRepo) Create(ctx context.Context, c *Case) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	c.CaseID = fmt.Sprintf("case-%d", m.nextID)
	cp := *c
	m.cases[c.CaseID] = &cp
	return nil
}

func (m *mockCaseRepo) GetByID(ctx context.Context, caseID string) (*Case, error) {
	c, ok := m.cases[caseID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) SaveAnswers(ctx context.Context, caseID string, selected []string, notes string, state State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c, ok := m.cases[caseID]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Selected = append([]string(nil), selected...)
	c.Notes = notes
	c.State = state
	return nil
}

func (m *mockCaseRepo) SaveResults(ctx context.Context, caseID string, sections *Sections, markdown string, state State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c, ok := m.cases[caseID]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Results = sections
	c.ResultMarkdown = markdown
	c.State = state
	return nil
}

func (m *mockCaseRepo) SaveTranslation(ctx context.Context, caseID, markdown, lang string, state State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c, ok := m.cases[caseID]
	if !ok {
		return pgx.ErrNoRows
	}
	c.TranslatedMarkdown = markdown
	c.TranslatedLang = lang
	c.State = state
	return nil
}

func (m *mockCaseRepo) ListRecent(ctx context.Context, limit, offset int) ([]*CaseSummary, int, error) {
	var out []*CaseSummary
	for _, c := range m.cases {
		out = append(out, &CaseSummary{
			CaseID:           c.CaseID,
			RahIDs:           c.RahIDs,
			State:            c.State,
			Source:           c.Source,
			CombinationTitle: c.CombinationTitle,
			AnalysisBlurb:    c.AnalysisBlurb,
			CreatedAt:        c.CreatedAt,
		})
	}
	return out, len(out), nil
}

type mockComboRepo struct {
	byKey map[string]*CuratedCombination
}

func (m *mockComboRepo) FindByKey(ctx context.Context, comboKey string) (*CuratedCombination, error) {
	if m.byKey == nil {
		return nil, nil
	}
	return m.byKey[comboKey], nil
}

type mockRahRepo struct {
	descriptions map[float64]string
}

func (m *mockRahRepo) List(ctx context.Context, q string, limit, offset int) ([]*reference.RahItemSummary, int, error) {
	return nil, 0, nil
}
func (m *mockRahRepo) GetByID(ctx context.Context, rahID float64) (*reference.RahItem, error) {
	return nil, errors.New("not found")
}
func (m *mockRahRepo) Upsert(ctx context.Context, item *reference.RahItem) error { return nil }
func (m *mockRahRepo) SetDescription(ctx context.Context, rahID float64, description string) error {
	return nil
}
func (m *mockRahRepo) Delete(ctx context.Context, rahID float64) error { return nil }
func (m *mockRahRepo) ExistAll(ctx context.Context, rahIDs []float64) (bool, error) {
	for _, id := range rahIDs {
		if _, ok := m.descriptions[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}
func (m *mockRahRepo) Descriptions(ctx context.Context, rahIDs []float64) (map[float64]string, error) {
	out := make(map[float64]string)
	for _, id := range rahIDs {
		if d, ok := m.descriptions[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

// scriptedGenerator returns canned replies in sequence.
type scriptedGenerator struct {
	replies []string
	err     error
	calls   int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt, system string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

// --------- fixtures ---------

var validTriad = []float64{58.41, 62.00, 40.00}

func descriptionsFor(ids []float64) map[float64]string {
	out := make(map[float64]string)
	for _, id := range ids {
		out[id] = fmt.Sprintf("Narrative for %.2f", id)
	}
	return out
}

const comboReply = "Combination: Circulatory-Endocrine Overlap\n" +
	"Analysis: Shared vascular regulation strain.\n" +
	"Recommendations: Support vascular tone with paced activity and hydration."

const questionnaireReply = `[
  {"id": "physical-1", "text": "Cold extremities?", "group": "Physical"},
  {"id": "emotional-1", "text": "Irritability under stress?", "group": "Psychological/Emotional"},
  {"id": "functional-1", "text": "Morning fatigue?", "group": "Functional"},
  {"id": "stray-1", "text": "Dizziness on standing?", "group": "Vascular"}
]`

const analyzeReply = `{
  "correlated_systems": ["Circulation and endocrine axis under shared load"],
  "indications": ["Vasomotor instability"],
  "note_synthesis": "Notes point to orthostatic strain.",
  "diagnostic_summary": "A bounded summary paragraph.",
  "recommendations": {
    "lifestyle": ["Regular movement breaks"],
    "nutritional": ["Adequate hydration"],
    "emotional": ["Stress pacing"],
    "bioresonance": ["Program 40 series"],
    "follow_up": ["Recheck in 4 weeks"]
  }
}`

func newService(cases *mockCaseRepo, combos *mockComboRepo, rah *mockRahRepo, gen *scriptedGenerator) *Service {
	if combos == nil {
		combos = &mockComboRepo{}
	}
	if rah == nil {
		rah = &mockRahRepo{descriptions: descriptionsFor(validTriad)}
	}
	return NewService(cases, combos, rah, gen, zerolog.Nop())
}

func startedCase(t *testing.T, cases *mockCaseRepo, gen *scriptedGenerator) (*Service, *Case) {
	t.Helper()
	svc := newService(cases, nil, nil, gen)
	c, err := svc.Start(context.Background(), validTriad)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return svc, c
}

// --------- start ---------

func TestStart_CuratedMatch(t *testing.T) {
	curated := &CuratedCombination{
		ComboKey:         ComboKey(validTriad),
		CombinationTitle: "Known Triad",
		Analysis:         "Curated analysis.",
		PotentialIndications: map[string][]string{
			"Physical":                {"Cold hands?"},
			"Psychological/Emotional": {"Low mood?"},
			"Functional":              {"Poor sleep?"},
		},
		Recommendations: "Curated guidance.",
	}
	combos := &mockComboRepo{byKey: map[string]*CuratedCombination{curated.ComboKey: curated}}
	gen := &scriptedGenerator{}
	svc := newService(newMockCaseRepo(), combos, nil, gen)

	c, err := svc.Start(context.Background(), validTriad)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Source != "db" {
		t.Errorf("expected source db, got %s", c.Source)
	}
	if gen.calls != 0 {
		t.Errorf("curated match must not call the generator, got %d calls", gen.calls)
	}
	if c.CombinationTitle != "Known Triad" || c.AnalysisBlurb != "Curated analysis." || c.Recommendations != "Curated guidance." {
		t.Errorf("curated fields not passed through verbatim: %+v", c)
	}
	if len(c.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(c.Questions))
	}
	if c.Questions[0].ID != "physical-1" || c.Questions[0].Group != GroupPhysical {
		t.Errorf("unexpected first question: %+v", c.Questions[0])
	}
	if c.State != StateStarted {
		t.Errorf("expected started state, got %s", c.State)
	}
}

func TestStart_OrderInsensitiveLookup(t *testing.T) {
	curated := &CuratedCombination{
		ComboKey:         ComboKey([]float64{40.00, 58.41, 62.00}),
		CombinationTitle: "Known Triad",
	}
	combos := &mockComboRepo{byKey: map[string]*CuratedCombination{curated.ComboKey: curated}}
	svc := newService(newMockCaseRepo(), combos, nil, &scriptedGenerator{})

	c, err := svc.Start(context.Background(), []float64{62.00, 40.00, 58.41})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Source != "db" {
		t.Errorf("shuffled triad should hit the curated record, got source %s", c.Source)
	}
}

func TestStart_AIFallback(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply}}
	cases := newMockCaseRepo()
	svc := newService(cases, nil, nil, gen)

	c, err := svc.Start(context.Background(), validTriad)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Source != "ai" {
		t.Errorf("expected source ai, got %s", c.Source)
	}
	if !reflect.DeepEqual(c.RahIDs, validTriad) {
		t.Errorf("rah_ids must preserve submission order, got %v", c.RahIDs)
	}
	if c.CombinationTitle != "Circulatory-Endocrine Overlap" {
		t.Errorf("unexpected title %q", c.CombinationTitle)
	}
	if c.AnalysisBlurb == "" {
		t.Error("expected non-empty blurb")
	}
	if c.Recommendations != "Support vascular tone with paced activity and hydration." {
		t.Errorf("AI-sourced case must carry recommendations, got %q", c.Recommendations)
	}
	if gen.calls != 2 {
		t.Errorf("expected 2 generation calls, got %d", gen.calls)
	}
	if len(c.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(c.Questions))
	}
	// "Vascular" is not a known group and must land in Physical.
	if c.Questions[3].Group != GroupPhysical {
		t.Errorf("unknown group not coerced: %+v", c.Questions[3])
	}
}

func TestStart_RejectsWrongCount(t *testing.T) {
	svc := newService(newMockCaseRepo(), nil, nil, &scriptedGenerator{})

	var verr *ValidationError
	_, err := svc.Start(context.Background(), []float64{40.00, 62.00})
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestStart_RejectsUnknownProgramCode(t *testing.T) {
	cases := newMockCaseRepo()
	svc := newService(cases, nil, nil, &scriptedGenerator{})

	var verr *ValidationError
	_, err := svc.Start(context.Background(), []float64{31.05, 62.00, 40.00})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(cases.cases) != 0 {
		t.Error("no case may be created on validation failure")
	}
}

func TestStart_RejectsUnknownRahIDs(t *testing.T) {
	rah := &mockRahRepo{descriptions: map[float64]string{40.00: "only one"}}
	cases := newMockCaseRepo()
	svc := newService(cases, nil, rah, &scriptedGenerator{})

	var verr *ValidationError
	_, err := svc.Start(context.Background(), validTriad)
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(cases.cases) != 0 {
		t.Error("no case may be created for unknown codes")
	}
}

func TestStart_GenerationFailureCreatesNoCase(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model offline")}
	cases := newMockCaseRepo()
	svc := newService(cases, nil, nil, gen)

	var gerr *GenerationError
	_, err := svc.Start(context.Background(), validTriad)
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if len(cases.cases) != 0 {
		t.Error("no case may be created when generation fails")
	}
}

func TestStart_EmptyQuestionnaireCreatesNoCase(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{comboReply, `[]`}}
	cases := newMockCaseRepo()
	svc := newService(cases, nil, nil, gen)

	var gerr *GenerationError
	_, err := svc.Start(context.Background(), validTriad)
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError for empty questionnaire, got %v", err)
	}
	if len(cases.cases) != 0 {
		t.Error("no case may be created for an empty questionnaire")
	}
}

func TestStart_NormalizesPrecision(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply}}
	rah := &mockRahRepo{descriptions: descriptionsFor([]float64{58.41, 62.00, 40.00})}
	svc := newService(newMockCaseRepo(), nil, rah, gen)

	c, err := svc.Start(context.Background(), []float64{58.411, 62.004, 39.999})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reflect.DeepEqual(c.RahIDs, []float64{58.41, 62.00, 40.00}) {
		t.Errorf("codes not normalized to two decimals: %v", c.RahIDs)
	}
}

// --------- saveAnswers ---------

func TestSaveAnswers_Idempotent(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply}}
	svc, c := startedCase(t, cases, gen)

	selected := []string{"physical-1", "functional-1"}
	if err := svc.SaveAnswers(context.Background(), c.CaseID, selected, "note"); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	first := *cases.cases[c.CaseID]

	if err := svc.SaveAnswers(context.Background(), c.CaseID, selected, "note"); err != nil {
		t.Fatalf("SaveAnswers repeat: %v", err)
	}
	second := *cases.cases[c.CaseID]

	if !reflect.DeepEqual(first.Selected, second.Selected) || first.Notes != second.Notes || first.State != second.State {
		t.Errorf("repeated save changed the snapshot: %+v vs %+v", first, second)
	}
	if second.State != StateAnswered {
		t.Errorf("expected answered state, got %s", second.State)
	}
}

func TestSaveAnswers_UnknownCase(t *testing.T) {
	svc := newService(newMockCaseRepo(), nil, nil, &scriptedGenerator{})

	var nferr *NotFoundError
	err := svc.SaveAnswers(context.Background(), "missing", nil, "")
	if !errors.As(err, &nferr) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestSaveAnswers_RowVanishedBeforeSave(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply}}
	svc, c := startedCase(t, cases, gen)

	cases.saveErr = pgx.ErrNoRows
	var nferr *NotFoundError
	err := svc.SaveAnswers(context.Background(), c.CaseID, []string{"physical-1"}, "")
	if !errors.As(err, &nferr) {
		t.Errorf("a row deleted under the save must surface as NotFoundError, got %v", err)
	}
}

func TestSaveAnswers_DoesNotRegressState(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply}}
	svc, c := startedCase(t, cases, gen)

	if _, err := svc.Analyze(context.Background(), c.CaseID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := svc.SaveAnswers(context.Background(), c.CaseID, []string{"physical-1"}, "late edit"); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if cases.cases[c.CaseID].State != StateAnalyzed {
		t.Errorf("state regressed to %s", cases.cases[c.CaseID].State)
	}
}

// --------- analyze ---------

func TestAnalyze_BeforeSaveAnswersUsesDefaults(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply}}
	svc, c := startedCase(t, cases, gen)

	result, err := svc.Analyze(context.Background(), c.CaseID)
	if err != nil {
		t.Fatalf("Analyze without saved answers must succeed: %v", err)
	}
	if result.ResultMarkdown == "" {
		t.Error("expected a rendered report")
	}
	if result.State != StateAnalyzed {
		t.Errorf("expected analyzed state, got %s", result.State)
	}
}

func TestAnalyze_UnknownCase(t *testing.T) {
	svc := newService(newMockCaseRepo(), nil, nil, &scriptedGenerator{})

	var nferr *NotFoundError
	_, err := svc.Analyze(context.Background(), "missing")
	if !errors.As(err, &nferr) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestAnalyze_RecoveryContract(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply}}
	svc := newService(cases, nil, nil, gen)

	var nferr *NotFoundError
	if _, err := svc.Analyze(context.Background(), "stale-id"); !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	// The documented recovery: re-run start, then retry analyze.
	c, err := svc.Start(context.Background(), validTriad)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Analyze(context.Background(), c.CaseID); err != nil {
		t.Fatalf("retry after restart must succeed: %v", err)
	}
}

func TestAnalyze_RowVanishedBeforeSave(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply}}
	svc, c := startedCase(t, cases, gen)

	cases.saveErr = pgx.ErrNoRows
	var nferr *NotFoundError
	if _, err := svc.Analyze(context.Background(), c.CaseID); !errors.As(err, &nferr) {
		t.Errorf("a row deleted under the save must surface as NotFoundError, got %v", err)
	}
}

func TestAnalyze_FailurePreservesPriorReport(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply}}
	svc, c := startedCase(t, cases, gen)

	if _, err := svc.Analyze(context.Background(), c.CaseID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	prior := cases.cases[c.CaseID].ResultMarkdown

	gen.err = errors.New("model offline")
	var gerr *GenerationError
	if _, err := svc.Analyze(context.Background(), c.CaseID); !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if cases.cases[c.CaseID].ResultMarkdown != prior {
		t.Error("prior report must survive a failed re-analysis")
	}
}

func TestAnalyze_NonJSONFallsBackToRawSummary(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, "plain prose, no JSON"}}
	svc, c := startedCase(t, cases, gen)

	result, err := svc.Analyze(context.Background(), c.CaseID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Results.DiagnosticSummary != "plain prose, no JSON" {
		t.Errorf("raw output not preserved as summary: %q", result.Results.DiagnosticSummary)
	}
}

// --------- translate ---------

func TestTranslate_BeforeAnalyzeFails(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply}}
	svc, c := startedCase(t, cases, gen)

	before := *cases.cases[c.CaseID]
	var perr *PreconditionError
	_, err := svc.Translate(context.Background(), c.CaseID, "de")
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	after := *cases.cases[c.CaseID]
	if before.State != after.State || before.TranslatedMarkdown != after.TranslatedMarkdown {
		t.Error("failed translate must leave case unchanged")
	}
}

func TestTranslate_AfterAnalyze(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply, "# RAI Analyse\n\nÜbersetzt."}}
	svc, c := startedCase(t, cases, gen)

	if _, err := svc.Analyze(context.Background(), c.CaseID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	original := cases.cases[c.CaseID].ResultMarkdown

	result, err := svc.Translate(context.Background(), c.CaseID, "de")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if result.TranslatedMarkdown == "" || result.TranslatedLang != "de" {
		t.Errorf("translation not stored: %+v", result)
	}
	if cases.cases[c.CaseID].ResultMarkdown != original {
		t.Error("translate must not mutate the original report")
	}
	if result.State != StateTranslated {
		t.Errorf("expected translated state, got %s", result.State)
	}
}

func TestTranslate_RequiresTargetLang(t *testing.T) {
	svc := newService(newMockCaseRepo(), nil, nil, &scriptedGenerator{})

	var verr *ValidationError
	_, err := svc.Translate(context.Background(), "case-1", " ")
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestTranslate_RowVanishedBeforeSave(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply, "Übersetzt."}}
	svc, c := startedCase(t, cases, gen)

	if _, err := svc.Analyze(context.Background(), c.CaseID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	cases.saveErr = pgx.ErrNoRows
	var nferr *NotFoundError
	if _, err := svc.Translate(context.Background(), c.CaseID, "de"); !errors.As(err, &nferr) {
		t.Errorf("a row deleted under the save must surface as NotFoundError, got %v", err)
	}
}

// --------- combinations ---------

func TestGetCombination(t *testing.T) {
	curated := &CuratedCombination{
		ComboKey:         ComboKey(validTriad),
		CombinationTitle: "Known Triad",
		Analysis:         "Curated analysis.",
	}
	combos := &mockComboRepo{byKey: map[string]*CuratedCombination{curated.ComboKey: curated}}
	svc := newService(newMockCaseRepo(), combos, nil, &scriptedGenerator{})

	combo, err := svc.GetCombination(context.Background(), curated.ComboKey)
	if err != nil {
		t.Fatalf("GetCombination: %v", err)
	}
	if combo.CombinationTitle != "Known Triad" {
		t.Errorf("unexpected combination %+v", combo)
	}

	var nferr *NotFoundError
	if _, err := svc.GetCombination(context.Background(), "1.00,2.00,3.00"); !errors.As(err, &nferr) {
		t.Errorf("expected NotFoundError for unknown key, got %v", err)
	}

	var verr *ValidationError
	if _, err := svc.GetCombination(context.Background(), "  "); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for blank key, got %v", err)
	}
}

// --------- fetch / history ---------

func TestGetCase_RoundTrip(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, analyzeReply}}
	svc, c := startedCase(t, cases, gen)

	if err := svc.SaveAnswers(context.Background(), c.CaseID, []string{"physical-1"}, "orthostatic complaints"); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if _, err := svc.Analyze(context.Background(), c.CaseID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	snapshot, err := svc.GetCase(context.Background(), c.CaseID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if len(snapshot.Questions) == 0 {
		t.Error("stage 1 fields missing")
	}
	if len(snapshot.Selected) != 1 || snapshot.Notes != "orthostatic complaints" {
		t.Error("stage 3 fields missing")
	}
	if snapshot.ResultMarkdown == "" || snapshot.Results == nil {
		t.Error("stage 4 fields missing")
	}
	if snapshot.State != StateAnalyzed {
		t.Errorf("expected analyzed state, got %s", snapshot.State)
	}
}

func TestListHistory(t *testing.T) {
	cases := newMockCaseRepo()
	gen := &scriptedGenerator{replies: []string{comboReply, questionnaireReply, comboReply, questionnaireReply}}
	svc := newService(cases, nil, nil, gen)

	if _, err := svc.Start(context.Background(), validTriad); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(context.Background(), validTriad); err != nil {
		t.Fatalf("Start: %v", err)
	}

	summaries, total, err := svc.ListHistory(context.Background(), 25, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if total != 2 || len(summaries) != 2 {
		t.Errorf("expected 2 cases, got total=%d len=%d", total, len(summaries))
	}
}

// --------- helpers under test ---------

func TestComboKey(t *testing.T) {
	key := ComboKey([]float64{62.00, 40.00, 58.41})
	if key != "40.00,58.41,62.00" {
		t.Errorf("unexpected key %q", key)
	}
	if ComboKey([]float64{40.00, 58.41, 62.00}) != key {
		t.Error("key must be order-insensitive")
	}
}

func TestNormalizeGroup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Physical", GroupPhysical},
		{"physical", GroupPhysical},
		{"Psychological/Emotional", GroupPsychological},
		{"emotional", GroupPsychological},
		{"Functional", GroupFunctional},
		{"Vascular", GroupPhysical},
		{"", GroupPhysical},
	}
	for _, tt := range tests {
		if got := NormalizeGroup(tt.in); got != tt.want {
			t.Errorf("NormalizeGroup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderMarkdown_FixedHeadings(t *testing.T) {
	md := RenderMarkdown(parseSections(analyzeReply))
	for _, heading := range []string{
		"# RAI Analysis",
		"## Correlated Systems Analysis",
		"## Indication Interpretation",
		"## Note Synthesis",
		"## 200-Word Diagnostic Summary",
		"## Tailored Recommendations",
		"**Rayonex Bioresonance**",
		"**Follow-Up**",
	} {
		if !strings.Contains(md, heading) {
			t.Errorf("missing heading %q in:\n%s", heading, md)
		}
	}
}

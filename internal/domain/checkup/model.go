// Package checkup implements the multi-stage intake workflow: a
// practitioner submits a triad of RAH codes, receives a combination
// narrative and a grouped questionnaire, ticks indicators, and gets an
// AI-composed report that can then be translated.
package checkup

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// State tracks how far a case has progressed. Transitions only move
// forward; a practitioner wanting different codes starts a new case.
type State string

const (
	StateStarted    State = "started"
	StateAnswered   State = "answered"
	StateAnalyzed   State = "analyzed"
	StateTranslated State = "translated"
)

// stateRank orders states for forward-only advancement.
var stateRank = map[State]int{
	StateStarted:    1,
	StateAnswered:   2,
	StateAnalyzed:   3,
	StateTranslated: 4,
}

// Advance returns the later of the two states.
func (s State) Advance(to State) State {
	if stateRank[to] > stateRank[s] {
		return to
	}
	return s
}

// Question groups. Every questionnaire item carries exactly one.
const (
	GroupPhysical      = "Physical"
	GroupPsychological = "Psychological/Emotional"
	GroupFunctional    = "Functional"
)

// Groups lists the fixed question groups in display order.
var Groups = []string{GroupPhysical, GroupPsychological, GroupFunctional}

// NormalizeGroup maps a free-form group label onto the fixed set.
// Anything unrecognized lands in Physical rather than being dropped.
func NormalizeGroup(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "physical":
		return GroupPhysical
	case "psychological/emotional", "psychological", "emotional", "psych/emotional":
		return GroupPsychological
	case "functional":
		return GroupFunctional
	default:
		return GroupPhysical
	}
}

// Question is one YES/NO indicator a practitioner can tick.
type Question struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Group string `json:"group"`
}

// Case is the persisted record of one checkup session.
type Case struct {
	CaseID             string     `json:"case_id"`
	RahIDs             []float64  `json:"rah_ids"`
	State              State      `json:"state"`
	Source             string     `json:"source"`
	CombinationTitle   string     `json:"combination_title"`
	AnalysisBlurb      string     `json:"analysis_blurb"`
	Questions          []Question `json:"questions"`
	Selected           []string   `json:"selected"`
	Notes              string     `json:"notes"`
	Recommendations    string     `json:"recommendations,omitempty"`
	Results            *Sections  `json:"results,omitempty"`
	ResultMarkdown     string     `json:"result_markdown,omitempty"`
	TranslatedMarkdown string     `json:"translated_markdown,omitempty"`
	TranslatedLang     string     `json:"translated_lang,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CaseSummary is the history-list projection of a case.
type CaseSummary struct {
	CaseID           string    `json:"case_id"`
	RahIDs           []float64 `json:"rah_ids"`
	State            State     `json:"state"`
	Source           string    `json:"source"`
	CombinationTitle string    `json:"combination_title"`
	AnalysisBlurb    string    `json:"analysis_blurb"`
	Recommendations  string    `json:"recommendations,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Sections is the structured body of an analysis report. Free-form
// generator output is coerced into this shape at the service boundary.
type Sections struct {
	CorrelatedSystems []string        `json:"correlated_systems"`
	Indications       []string        `json:"indications"`
	NoteSynthesis     string          `json:"note_synthesis"`
	DiagnosticSummary string          `json:"diagnostic_summary"`
	Recommendations   Recommendations `json:"recommendations"`
}

// Recommendations holds the tailored guidance buckets of a report.
type Recommendations struct {
	Lifestyle    []string `json:"lifestyle"`
	Nutritional  []string `json:"nutritional"`
	Emotional    []string `json:"emotional"`
	Bioresonance []string `json:"bioresonance"`
	FollowUp     []string `json:"follow_up"`
}

// CuratedCombination is a pre-authored profile for a specific triad.
// PotentialIndications maps a group label to its question texts.
type CuratedCombination struct {
	ComboKey             string              `json:"combo_key"`
	CombinationTitle     string              `json:"combination_title"`
	Analysis             string              `json:"analysis"`
	PotentialIndications map[string][]string `json:"potential_indications"`
	Recommendations      string              `json:"recommendations"`
}

// ComboKey canonicalizes a triad for curated lookup. The codes are
// treated as an unordered set: sorted ascending, two decimals each,
// comma-joined.
func ComboKey(rahIDs []float64) string {
	sorted := append([]float64(nil), rahIDs...)
	sort.Float64s(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprintf("%.2f", id)
	}
	return strings.Join(parts, ",")
}

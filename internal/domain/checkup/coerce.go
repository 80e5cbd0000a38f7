package checkup

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseComboReply extracts the "Combination:", "Analysis:" and
// "Recommendations:" lines from a labeled reply. Missing labels yield
// empty strings; the caller applies defaults.
func parseComboReply(raw string) (title, blurb, recommendations string) {
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "combination:") {
			title = strings.TrimSpace(line[len("combination:"):])
		}
		if strings.HasPrefix(lower, "analysis:") {
			blurb = strings.TrimSpace(line[len("analysis:"):])
		}
		if strings.HasPrefix(lower, "recommendations:") {
			recommendations = strings.TrimSpace(line[len("recommendations:"):])
		}
	}
	return title, blurb, recommendations
}

// parseQuestionnaire decodes the generated question array and coerces
// every item onto the fixed group set. Items missing an id or text are
// dropped; items with an unknown group are kept under Physical.
func parseQuestionnaire(raw string) ([]Question, error) {
	var items []struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Group string `json:"group"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw, '[', ']')), &items); err != nil {
		return nil, fmt.Errorf("decode questionnaire: %w", err)
	}

	var questions []Question
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Text) == "" {
			continue
		}
		questions = append(questions, Question{
			ID:    strings.TrimSpace(it.ID),
			Text:  strings.TrimSpace(it.Text),
			Group: NormalizeGroup(it.Group),
		})
	}
	return questions, nil
}

// questionsFromIndications converts a curated record's grouped
// indication texts into questionnaire items with stable ids like
// "physical-1". Groups are emitted in fixed display order.
func questionsFromIndications(indications map[string][]string) []Question {
	var questions []Question
	for _, group := range Groups {
		slug := strings.ReplaceAll(strings.ToLower(group), " ", "-")
		for i, text := range indications[group] {
			questions = append(questions, Question{
				ID:    fmt.Sprintf("%s-%d", slug, i+1),
				Text:  text,
				Group: group,
			})
		}
	}
	return questions
}

// parseSections decodes the analyze reply into the fixed report shape.
// A reply that is not valid JSON is not an error: the raw text becomes
// the diagnostic summary so the practitioner still sees something.
func parseSections(raw string) *Sections {
	var s Sections
	if err := json.Unmarshal([]byte(extractJSON(raw, '{', '}')), &s); err != nil {
		return &Sections{DiagnosticSummary: strings.TrimSpace(raw)}
	}
	return &s
}

// extractJSON trims prose the generator sometimes wraps around its
// JSON payload, keeping everything between the first open and last
// close delimiter.
func extractJSON(raw string, open, closing byte) string {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, closing)
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

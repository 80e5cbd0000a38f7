package checkup

import (
	"fmt"
	"strings"
)

// System prompts for each generation step. The output contracts here
// (labeled lines, JSON shapes) are what coerce.go parses.

const comboTitleSystem = "You are given descriptions of three physiology IDs from a knowledge base. " +
	"1) Propose a concise 'Combination:' line (max ~140 chars) that names the overlapping systems. " +
	"2) Provide a 1-2 sentence neutral 'Analysis' blurb describing likely shared dysfunction. " +
	"3) Provide a short 'Recommendations:' line with practical supportive guidance for the combination."

const questionnaireSystem = "From the three physiology descriptions, produce a short YES/NO questionnaire that a practitioner can ask. " +
	"Return 6-9 crisp items grouped across Physical, Psychological/Emotional, and Functional. " +
	"Output as JSON array with objects: {id, text, group} where group is one of " +
	"'Physical','Psychological/Emotional','Functional'. IDs should be stable, kebab-case."

const analyzeSystem = "You are a clinical summarizer. Using selected YES/NO indicators and notes, " +
	"generate a concise professional analysis with headings exactly as below:\n" +
	"1) Correlated Systems Analysis (3 bullet lines)\n" +
	"2) Indication Interpretation (3 bullet lines)\n" +
	"3) Note Synthesis (1-2 sentences)\n" +
	"4) 200-Word Diagnostic Summary (one paragraph ~200 words)\n" +
	"5) Tailored Recommendations (Lifestyle / Nutritional / Emotional / Rayonex Bioresonance / Follow-Up bullets)\n" +
	"Return a JSON object with keys: correlated_systems, indications, note_synthesis, diagnostic_summary, " +
	"recommendations (with lifestyle, nutritional, emotional, bioresonance, follow_up arrays)."

const translateSystem = "You are a precise medical translator. Translate the user content to the target language. " +
	"Preserve markdown structure, headings, and bullet lists exactly. Do not add commentary."

// triadContext renders the per-code narratives in submission order.
func triadContext(rahIDs []float64, descriptions map[float64]string) string {
	var b strings.Builder
	for i, id := range rahIDs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "RAH %.2f:\n%s", id, descriptions[id])
	}
	return b.String()
}

func comboTitlePrompt(context string) string {
	return fmt.Sprintf(
		"Descriptions from three RAH items:\n\n%s\n\n"+
			"Return three lines labeled exactly:\n"+
			"Combination: <short title>\n"+
			"Analysis: <1-2 sentence blurb>\n"+
			"Recommendations: <short supportive guidance>", context)
}

func questionnairePrompt(context string) string {
	return fmt.Sprintf(
		"Descriptions from three RAH items:\n\n%s\n\n"+
			"Produce questionnaire JSON now.", context)
}

func analyzePrompt(c *Case) string {
	selected := make(map[string]bool, len(c.Selected))
	for _, id := range c.Selected {
		selected[id] = true
	}

	var picked strings.Builder
	for _, q := range c.Questions {
		if selected[q.ID] {
			fmt.Fprintf(&picked, "- [%s] %s\n", q.Group, q.Text)
		}
	}

	notes := c.Notes
	if notes == "" {
		notes = "(none)"
	}

	return fmt.Sprintf(
		"Combination: %s\n"+
			"Short analysis: %s\n\n"+
			"Selected indicators (YES):\n%s\n"+
			"Practitioner notes:\n%s\n\n"+
			"Return JSON only per instructions.",
		c.CombinationTitle, c.AnalysisBlurb, picked.String(), notes)
}

func translatePrompt(targetLang, markdown string) string {
	return fmt.Sprintf("Target language: %s\n\nDocument:\n\n%s", targetLang, markdown)
}

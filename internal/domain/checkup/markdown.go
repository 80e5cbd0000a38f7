package checkup

import (
	"fmt"
	"strings"
)

// RenderMarkdown turns report sections into the fixed-heading markdown
// document shown to the practitioner and fed to translation.
func RenderMarkdown(s *Sections) string {
	var b strings.Builder

	b.WriteString("# RAI Analysis\n\n")

	b.WriteString("## Correlated Systems Analysis\n")
	writeBullets(&b, s.CorrelatedSystems)

	b.WriteString("\n## Indication Interpretation\n")
	writeBullets(&b, s.Indications)

	fmt.Fprintf(&b, "\n## Note Synthesis\n%s\n", s.NoteSynthesis)

	fmt.Fprintf(&b, "\n## 200-Word Diagnostic Summary\n%s\n", s.DiagnosticSummary)

	b.WriteString("\n## Tailored Recommendations\n")
	writeRecGroup(&b, "Lifestyle", s.Recommendations.Lifestyle)
	writeRecGroup(&b, "Nutritional", s.Recommendations.Nutritional)
	writeRecGroup(&b, "Emotional", s.Recommendations.Emotional)
	writeRecGroup(&b, "Rayonex Bioresonance", s.Recommendations.Bioresonance)
	writeRecGroup(&b, "Follow-Up", s.Recommendations.FollowUp)

	return strings.TrimSpace(b.String())
}

func writeBullets(b *strings.Builder, items []string) {
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func writeRecGroup(b *strings.Builder, label string, items []string) {
	fmt.Fprintf(b, "**%s**\n", label)
	writeBullets(b, items)
	b.WriteString("\n")
}

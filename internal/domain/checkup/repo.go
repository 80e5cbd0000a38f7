package checkup

import "context"

// CaseRepository persists checkup cases. Implementations return plain
// storage errors; the service wraps them into the workflow taxonomy.
type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, caseID string) (*Case, error)
	SaveAnswers(ctx context.Context, caseID string, selected []string, notes string, state State) error
	SaveResults(ctx context.Context, caseID string, sections *Sections, markdown string, state State) error
	SaveTranslation(ctx context.Context, caseID, markdown, lang string, state State) error
	ListRecent(ctx context.Context, limit, offset int) ([]*CaseSummary, int, error)
}

// CombinationRepository looks up curated triad profiles.
type CombinationRepository interface {
	FindByKey(ctx context.Context, comboKey string) (*CuratedCombination, error)
}

package reference

import "context"

// RahRepository stores RAH catalog items.
type RahRepository interface {
	List(ctx context.Context, q string, limit, offset int) ([]*RahItemSummary, int, error)
	GetByID(ctx context.Context, rahID float64) (*RahItem, error)
	Upsert(ctx context.Context, item *RahItem) error
	SetDescription(ctx context.Context, rahID float64, description string) error
	Delete(ctx context.Context, rahID float64) error
	ExistAll(ctx context.Context, rahIDs []float64) (bool, error)
	Descriptions(ctx context.Context, rahIDs []float64) (map[float64]string, error)
}

// ProgramRepository stores physiology programs.
type ProgramRepository interface {
	List(ctx context.Context) ([]*PhysiologyProgram, error)
	Create(ctx context.Context, p *PhysiologyProgram) error
}

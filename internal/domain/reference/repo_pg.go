package reference

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rah/rah/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== RAH Item Repository ===========

type rahRepoPG struct{ pool *pgxpool.Pool }

func NewRahRepoPG(pool *pgxpool.Pool) RahRepository { return &rahRepoPG{pool: pool} }

func (r *rahRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *rahRepoPG) List(ctx context.Context, q string, limit, offset int) ([]*RahItemSummary, int, error) {
	where := ""
	args := []interface{}{}
	if q != "" {
		where = "WHERE details ILIKE $1 OR category ILIKE $1"
		args = append(args, "%"+q+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM rah_item %s", where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("rah count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT rah_id, COALESCE(details,''), COALESCE(category,''),
		        COALESCE(description,'') <> ''
		 FROM rah_item %s
		 ORDER BY rah_id LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("rah list: %w", err)
	}
	defer rows.Close()

	var items []*RahItemSummary
	for rows.Next() {
		var it RahItemSummary
		if err := rows.Scan(&it.RahID, &it.Details, &it.Category, &it.HasDescription); err != nil {
			return nil, 0, err
		}
		items = append(items, &it)
	}
	return items, total, rows.Err()
}

func (r *rahRepoPG) GetByID(ctx context.Context, rahID float64) (*RahItem, error) {
	var it RahItem
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT rah_id, COALESCE(details,''), COALESCE(category,''), COALESCE(description,''),
		        created_at, updated_at
		 FROM rah_item WHERE rah_id = $1`, rahID).
		Scan(&it.RahID, &it.Details, &it.Category, &it.Description, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("rah get: %w", err)
	}
	return &it, nil
}

func (r *rahRepoPG) Upsert(ctx context.Context, item *RahItem) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO rah_item (rah_id, details, category, description)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 ON CONFLICT (rah_id) DO UPDATE SET
		   details = EXCLUDED.details,
		   category = EXCLUDED.category,
		   description = EXCLUDED.description,
		   updated_at = now()`,
		item.RahID, item.Details, item.Category, item.Description)
	if err != nil {
		return fmt.Errorf("rah upsert: %w", err)
	}
	return nil
}

func (r *rahRepoPG) SetDescription(ctx context.Context, rahID float64, description string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE rah_item SET description = $2, updated_at = now() WHERE rah_id = $1`,
		rahID, description)
	if err != nil {
		return fmt.Errorf("rah set description: %w", err)
	}
	return nil
}

func (r *rahRepoPG) Delete(ctx context.Context, rahID float64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM rah_item WHERE rah_id = $1`, rahID)
	if err != nil {
		return fmt.Errorf("rah delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *rahRepoPG) ExistAll(ctx context.Context, rahIDs []float64) (bool, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(DISTINCT rah_id) FROM rah_item WHERE rah_id = ANY($1)`, rahIDs).
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("rah exist: %w", err)
	}
	return count == len(dedupe(rahIDs)), nil
}

// Descriptions returns the best available narrative per code, falling
// back from the long description to the short details line.
func (r *rahRepoPG) Descriptions(ctx context.Context, rahIDs []float64) (map[float64]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT rah_id, COALESCE(NULLIF(TRIM(description), ''), COALESCE(details, ''))
		 FROM rah_item WHERE rah_id = ANY($1)`, rahIDs)
	if err != nil {
		return nil, fmt.Errorf("rah descriptions: %w", err)
	}
	defer rows.Close()

	byID := make(map[float64]string)
	for rows.Next() {
		var id float64
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		byID[id] = text
	}
	return byID, rows.Err()
}

func dedupe(ids []float64) []float64 {
	seen := make(map[float64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// =========== Program Repository ===========

type programRepoPG struct{ pool *pgxpool.Pool }

func NewProgramRepoPG(pool *pgxpool.Pool) ProgramRepository { return &programRepoPG{pool: pool} }

func (r *programRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *programRepoPG) List(ctx context.Context) ([]*PhysiologyProgram, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT program_code, name, sex FROM physiology_program ORDER BY program_code`)
	if err != nil {
		return nil, fmt.Errorf("program list: %w", err)
	}
	defer rows.Close()

	var programs []*PhysiologyProgram
	for rows.Next() {
		var p PhysiologyProgram
		if err := rows.Scan(&p.ProgramCode, &p.Name, &p.Sex); err != nil {
			return nil, err
		}
		programs = append(programs, &p)
	}
	return programs, rows.Err()
}

func (r *programRepoPG) Create(ctx context.Context, p *PhysiologyProgram) error {
	sex := p.Sex
	if sex == "" {
		sex = "unisex"
	}
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO physiology_program (program_code, name, sex) VALUES ($1, $2, $3)`,
		p.ProgramCode, p.Name, sex)
	if err != nil {
		return fmt.Errorf("program create: %w", err)
	}
	return nil
}

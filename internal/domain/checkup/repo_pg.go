package checkup

import (
	"context"
	"encoding/json"
	"errors"
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

// =========== Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	questions, err := json.Marshal(c.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx,
		`INSERT INTO checkup_case
		   (rah_ids, state, source, combination, analysis_blurb, questions, recommendations)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		 RETURNING case_id::text, created_at, updated_at`,
		c.RahIDs, c.State, c.Source, c.CombinationTitle, c.AnalysisBlurb, questions, c.Recommendations).
		Scan(&c.CaseID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("case create: %w", err)
	}
	return nil
}

func (r *caseRepoPG) GetByID(ctx context.Context, caseID string) (*Case, error) {
	var (
		c            Case
		questions    []byte
		selected     []byte
		results      []byte
		notes        *string
		recs         *string
		resultMD     *string
		translatedMD *string
		lang         *string
	)
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT case_id::text, rah_ids, state, COALESCE(source,'ai'),
		        COALESCE(combination,''), COALESCE(analysis_blurb,''),
		        questions, answers, notes, recommendations,
		        results, result_markdown, translated_markdown, translated_lang,
		        created_at, updated_at
		 FROM checkup_case WHERE case_id = $1`, caseID).
		Scan(&c.CaseID, &c.RahIDs, &c.State, &c.Source,
			&c.CombinationTitle, &c.AnalysisBlurb,
			&questions, &selected, &notes, &recs,
			&results, &resultMD, &translatedMD, &lang,
			&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("case get: %w", err)
	}

	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &c.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}
	if len(selected) > 0 {
		if err := json.Unmarshal(selected, &c.Selected); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(results) > 0 {
		c.Results = &Sections{}
		if err := json.Unmarshal(results, c.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	}
	if notes != nil {
		c.Notes = *notes
	}
	if recs != nil {
		c.Recommendations = *recs
	}
	if resultMD != nil {
		c.ResultMarkdown = *resultMD
	}
	if translatedMD != nil {
		c.TranslatedMarkdown = *translatedMD
	}
	if lang != nil {
		c.TranslatedLang = *lang
	}
	return &c, nil
}

func (r *caseRepoPG) SaveAnswers(ctx context.Context, caseID string, selected []string, notes string, state State) error {
	payload, err := json.Marshal(selected)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE checkup_case
		 SET answers = $2, notes = $3, state = $4, updated_at = now()
		 WHERE case_id = $1`, caseID, payload, notes, state)
	if err != nil {
		return fmt.Errorf("case save answers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepoPG) SaveResults(ctx context.Context, caseID string, sections *Sections, markdown string, state State) error {
	payload, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE checkup_case
		 SET results = $2, result_markdown = $3, state = $4, updated_at = now()
		 WHERE case_id = $1`, caseID, payload, markdown, state)
	if err != nil {
		return fmt.Errorf("case save results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepoPG) SaveTranslation(ctx context.Context, caseID, markdown, lang string, state State) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE checkup_case
		 SET translated_markdown = $2, translated_lang = $3, state = $4, updated_at = now()
		 WHERE case_id = $1`, caseID, markdown, lang, state)
	if err != nil {
		return fmt.Errorf("case save translation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepoPG) ListRecent(ctx context.Context, limit, offset int) ([]*CaseSummary, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM checkup_case`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("case count: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT case_id::text, rah_ids, state, COALESCE(source,'ai'),
		        COALESCE(combination,''), COALESCE(analysis_blurb,''),
		        COALESCE(recommendations,''), created_at
		 FROM checkup_case
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("case history: %w", err)
	}
	defer rows.Close()

	var summaries []*CaseSummary
	for rows.Next() {
		var s CaseSummary
		if err := rows.Scan(&s.CaseID, &s.RahIDs, &s.State, &s.Source,
			&s.CombinationTitle, &s.AnalysisBlurb, &s.Recommendations, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, total, rows.Err()
}

// =========== Combination Repository ===========

type comboRepoPG struct{ pool *pgxpool.Pool }

func NewCombinationRepoPG(pool *pgxpool.Pool) CombinationRepository { return &comboRepoPG{pool: pool} }

func (r *comboRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *comboRepoPG) FindByKey(ctx context.Context, comboKey string) (*CuratedCombination, error) {
	var (
		combo       CuratedCombination
		indications []byte
		recs        *string
	)
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT combo_key, COALESCE(combination_title,'Combination'), COALESCE(analysis,''),
		        potential_indications, recommendations
		 FROM rah_combination_profiles WHERE combo_key = $1 LIMIT 1`, comboKey).
		Scan(&combo.ComboKey, &combo.CombinationTitle, &combo.Analysis, &indications, &recs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("combination lookup: %w", err)
	}

	if len(indications) > 0 {
		if err := json.Unmarshal(indications, &combo.PotentialIndications); err != nil {
			return nil, fmt.Errorf("decode indications: %w", err)
		}
	}
	if recs != nil {
		combo.Recommendations = *recs
	}
	return &combo, nil
}

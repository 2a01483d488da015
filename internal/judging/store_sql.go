package judging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/judging/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(dbh *sql.DB) *SQLStore {
	return &SQLStore{db: dbh}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// ---- settings ----

func (s *SQLStore) GetSettings(ctx context.Context) (Setting, bool, error) {
	var doc, hash string
	err := s.db.QueryRowContext(ctx, `SELECT doc, admin_password_hash FROM settings WHERE id=1`).Scan(&doc, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, false, nil
	}
	if err != nil {
		return Setting{}, false, err
	}
	var st Setting
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return Setting{}, false, fmt.Errorf("decode settings: %w", err)
	}
	st.AdminPasswordHash = hash
	return st, true, nil
}

func (s *SQLStore) PutSettings(ctx context.Context, st Setting) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (id, doc, admin_password_hash, updated_at)
		VALUES (1,$1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc, admin_password_hash=EXCLUDED.admin_password_hash, updated_at=EXCLUDED.updated_at`,
		string(doc), st.AdminPasswordHash, nowMillis())
	return err
}

// ---- projects ----

const projectCols = `id, title, category, team, school, contact`

func scanProject(row interface{ Scan(...any) error }) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Team, &p.School, &p.Contact)
	return p, err
}

func (s *SQLStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectCols+` FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetProject(ctx context.Context, id string) (Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, notFound("project", id)
	}
	return p, err
}

func (s *SQLStore) UpsertProject(ctx context.Context, p Project) error {
	now := nowMillis()
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects (id,title,category,team,school,contact,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, category=EXCLUDED.category, team=EXCLUDED.team,
			school=EXCLUDED.school, contact=EXCLUDED.contact, updated_at=EXCLUDED.updated_at`,
		p.ID, p.Title, p.Category, p.Team, p.School, p.Contact, now)
	return err
}

func (s *SQLStore) DeleteProject(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "projects", "project", id)
}

// ---- evaluators ----

const evaluatorCols = `id, name, email, expertise, notes, code`

func scanEvaluator(row interface{ Scan(...any) error }) (Evaluator, error) {
	var e Evaluator
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Expertise, &e.Notes, &e.Code)
	return e, err
}

func (s *SQLStore) queryEvaluators(ctx context.Context, q string, args ...any) ([]Evaluator, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Evaluator{}
	for rows.Next() {
		e, err := scanEvaluator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListEvaluators(ctx context.Context) ([]Evaluator, error) {
	return s.queryEvaluators(ctx, `SELECT `+evaluatorCols+` FROM evaluators ORDER BY created_at, id`)
}

func (s *SQLStore) FindEvaluatorsByEmail(ctx context.Context, email string) ([]Evaluator, error) {
	return s.queryEvaluators(ctx, `SELECT `+evaluatorCols+` FROM evaluators WHERE email=$1 ORDER BY created_at, id`, email)
}

func (s *SQLStore) GetEvaluator(ctx context.Context, id string) (Evaluator, error) {
	e, err := scanEvaluator(s.db.QueryRowContext(ctx, `SELECT `+evaluatorCols+` FROM evaluators WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluator{}, notFound("evaluator", id)
	}
	return e, err
}

func (s *SQLStore) UpsertEvaluator(ctx context.Context, e Evaluator) error {
	now := nowMillis()
	_, err := s.db.ExecContext(ctx, `INSERT INTO evaluators (id,name,email,expertise,notes,code,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, expertise=EXCLUDED.expertise,
			notes=EXCLUDED.notes, code=EXCLUDED.code, updated_at=EXCLUDED.updated_at`,
		e.ID, e.Name, e.Email, e.Expertise, e.Notes, e.Code, now)
	return err
}

func (s *SQLStore) DeleteEvaluator(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "evaluators", "evaluator", id)
}

// ---- panels ----

func scanPanel(row interface{ Scan(...any) error }) (Panel, error) {
	var p Panel
	var evJSON, prJSON string
	if err := row.Scan(&p.ID, &p.Name, &evJSON, &prJSON); err != nil {
		return Panel{}, err
	}
	if err := json.Unmarshal([]byte(evJSON), &p.EvaluatorIDs); err != nil {
		return Panel{}, fmt.Errorf("decode panel %s evaluators: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(prJSON), &p.ProjectIDs); err != nil {
		return Panel{}, fmt.Errorf("decode panel %s projects: %w", p.ID, err)
	}
	return p, nil
}

func (s *SQLStore) ListPanels(ctx context.Context) ([]Panel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, evaluator_ids_json, project_ids_json FROM panels ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Panel{}
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetPanel(ctx context.Context, id string) (Panel, error) {
	p, err := scanPanel(s.db.QueryRowContext(ctx,
		`SELECT id, name, evaluator_ids_json, project_ids_json FROM panels WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Panel{}, notFound("panel", id)
	}
	return p, err
}

func (s *SQLStore) UpsertPanel(ctx context.Context, p Panel) error {
	ev, err := json.Marshal(nonNil(p.EvaluatorIDs))
	if err != nil {
		return err
	}
	pr, err := json.Marshal(nonNil(p.ProjectIDs))
	if err != nil {
		return err
	}
	now := nowMillis()
	_, err = s.db.ExecContext(ctx, `INSERT INTO panels (id,name,evaluator_ids_json,project_ids_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, evaluator_ids_json=EXCLUDED.evaluator_ids_json,
			project_ids_json=EXCLUDED.project_ids_json, updated_at=EXCLUDED.updated_at`,
		p.ID, p.Name, string(ev), string(pr), now)
	return err
}

func (s *SQLStore) DeletePanel(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "panels", "panel", id)
}

// ---- results ----

const resultCols = `id, project_id, evaluator_id, panel_id, scores_json, remark, total, ts, created_at`

func scanResult(row interface{ Scan(...any) error }) (Result, error) {
	var r Result
	var scores string
	var ts, created int64
	if err := row.Scan(&r.ID, &r.ProjectID, &r.EvaluatorID, &r.PanelID, &scores, &r.Remark, &r.Total, &ts, &created); err != nil {
		return Result{}, err
	}
	if err := json.Unmarshal([]byte(scores), &r.Scores); err != nil || r.Scores == nil {
		r.Scores = Scores{}
	}
	r.Timestamp = time.UnixMilli(ts).UTC()
	r.CreatedAt = time.UnixMilli(created).UTC()
	return r, nil
}

func (s *SQLStore) queryResults(ctx context.Context, q string, args ...any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListResults(ctx context.Context) ([]Result, error) {
	return s.queryResults(ctx, `SELECT `+resultCols+` FROM results ORDER BY created_at, id`)
}

func (s *SQLStore) ListResultsByEvaluator(ctx context.Context, evaluatorID string) ([]Result, error) {
	return s.queryResults(ctx, `SELECT `+resultCols+` FROM results WHERE evaluator_id=$1 ORDER BY created_at, id`, evaluatorID)
}

// UpsertResult writes r keyed by its (project, evaluator) pair. An existing
// row keeps its id and created_at; the stored row is returned.
func (s *SQLStore) UpsertResult(ctx context.Context, r Result) (Result, error) {
	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return Result{}, err
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = ts
	}
	return scanResult(s.db.QueryRowContext(ctx, `INSERT INTO results (id,project_id,evaluator_id,panel_id,scores_json,remark,total,ts,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (project_id, evaluator_id) DO UPDATE SET panel_id=EXCLUDED.panel_id,
			scores_json=EXCLUDED.scores_json, remark=EXCLUDED.remark,
			total=EXCLUDED.total, ts=EXCLUDED.ts
		RETURNING `+resultCols,
		r.ID, r.ProjectID, r.EvaluatorID, r.PanelID, string(scores), r.Remark, r.Total, ts.UnixMilli(), created.UnixMilli()))
}

// ---- finalization state ----

func (s *SQLStore) ListEvaluatorStates(ctx context.Context) ([]EvaluatorState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT evaluator_id, finalized_all FROM evaluator_states ORDER BY evaluator_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []EvaluatorState{}
	for rows.Next() {
		var st EvaluatorState
		if err := rows.Scan(&st.EvaluatorID, &st.FinalizedAll); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetEvaluatorState(ctx context.Context, evaluatorID string) (EvaluatorState, error) {
	st := EvaluatorState{EvaluatorID: evaluatorID}
	err := s.db.QueryRowContext(ctx,
		`SELECT finalized_all FROM evaluator_states WHERE evaluator_id=$1`, evaluatorID).Scan(&st.FinalizedAll)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	return st, err
}

func (s *SQLStore) SetFinalized(ctx context.Context, evaluatorID string, finalized bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO evaluator_states (evaluator_id, finalized_all, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (evaluator_id) DO UPDATE SET finalized_all=EXCLUDED.finalized_all, updated_at=EXCLUDED.updated_at`,
		evaluatorID, finalized, nowMillis())
	return err
}

func (s *SQLStore) ResetFinalization(ctx context.Context, evaluatorID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if evaluatorID == "" {
		res, err = s.db.ExecContext(ctx,
			`UPDATE evaluator_states SET finalized_all=$1, updated_at=$2 WHERE finalized_all=$3`, false, nowMillis(), true)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE evaluator_states SET finalized_all=$1, updated_at=$2 WHERE evaluator_id=$3 AND finalized_all=$4`,
			false, nowMillis(), evaluatorID, true)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- bulk wipes ----

func (s *SQLStore) ClearResults(ctx context.Context) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return execAll(ctx, tx, `DELETE FROM results`, `DELETE FROM evaluator_states`)
	})
}

func (s *SQLStore) ResetAll(ctx context.Context) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return execAll(ctx, tx,
			`DELETE FROM evaluators`,
			`DELETE FROM projects`,
			`DELETE FROM panels`,
			`DELETE FROM results`,
			`DELETE FROM evaluator_states`,
		)
	})
}

func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("%s: %w", q, err)
		}
	}
	return nil
}

// table names are package constants, never caller input
func (s *SQLStore) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

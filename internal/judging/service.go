package judging

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/judging/internal/storage"
)

// Service is the business boundary over a Store. Every rule that the HTTP
// layer relies on (validation, ownership, finalization) is enforced here.
type Service struct {
	store        Store
	rules        PanelRules
	blockOverlap bool
	bcryptCost   int
	backups      storage.BlobStore
	now          func() time.Time
	newID        func() string
	log          *slog.Logger
}

type Option func(*Service)

func WithPanelRules(r PanelRules) Option { return func(s *Service) { s.rules = r } }

// WithOverlapBlocking rejects panels that claim members of other panels
// instead of saving them with a warning.
func WithOverlapBlocking(block bool) Option { return func(s *Service) { s.blockOverlap = block } }

func WithBcryptCost(cost int) Option { return func(s *Service) { s.bcryptCost = cost } }

// WithBackups makes ResetAll write a snapshot and score export to b first.
func WithBackups(b storage.BlobStore) Option { return func(s *Service) { s.backups = b } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		rules:      DefaultPanelRules,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		newID:      uuid.NewString,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ---- settings ----

// Settings returns the stored document, creating the defaults on first use.
func (s *Service) Settings(ctx context.Context) (Setting, error) {
	st, found, err := s.store.GetSettings(ctx)
	if err != nil {
		return Setting{}, fmt.Errorf("load settings: %w", err)
	}
	if found {
		return st, nil
	}
	st = DefaultSettings()
	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), s.bcryptCost)
	if err != nil {
		return Setting{}, err
	}
	st.AdminPasswordHash = string(hash)
	if err := s.store.PutSettings(ctx, st); err != nil {
		return Setting{}, fmt.Errorf("seed settings: %w", err)
	}
	s.log.Info("seeded default settings", "adminEmail", st.AdminEmail)
	return st, nil
}

func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (Setting, error) {
	cur, err := s.Settings(ctx)
	if err != nil {
		return Setting{}, err
	}
	next, password := patch.apply(cur)
	if err := validateSettings(next); err != nil {
		return Setting{}, err
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
		if err != nil {
			return Setting{}, invalid("adminPassword: %v", err)
		}
		next.AdminPasswordHash = string(hash)
	}
	if err := s.store.PutSettings(ctx, next); err != nil {
		return Setting{}, fmt.Errorf("save settings: %w", err)
	}
	return next, nil
}

// Snapshot assembles the full data document. With redact set, evaluator
// access codes are blanked.
func (s *Service) Snapshot(ctx context.Context, redact bool) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Settings, err = s.Settings(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Evaluators, err = s.store.ListEvaluators(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Projects, err = s.store.ListProjects(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Panels, err = s.store.ListPanels(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Results, err = s.store.ListResults(ctx); err != nil {
		return Snapshot{}, err
	}
	states, err := s.store.ListEvaluatorStates(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.EvaluatorState = make(map[string]EvaluatorState, len(states))
	for _, st := range states {
		snap.EvaluatorState[st.EvaluatorID] = st
	}
	if redact {
		for i := range snap.Evaluators {
			snap.Evaluators[i].Code = ""
		}
	}
	return snap, nil
}

// ---- access ----

func (s *Service) AuthenticateAdmin(ctx context.Context, email, password string) error {
	st, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(email), st.AdminEmail) {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(st.AdminPasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// AuthenticateEvaluator matches email and access code. Emails are not
// unique, so every evaluator sharing the email is tried.
func (s *Service) AuthenticateEvaluator(ctx context.Context, email, code string) (Evaluator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return Evaluator{}, ErrInvalidCredentials
	}
	cands, err := s.store.FindEvaluatorsByEmail(ctx, email)
	if err != nil {
		return Evaluator{}, err
	}
	for _, e := range cands {
		if subtle.ConstantTimeCompare([]byte(e.Code), []byte(code)) == 1 {
			return e, nil
		}
	}
	return Evaluator{}, ErrInvalidCredentials
}

// ---- projects ----

func normalizeProject(p Project) Project {
	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)
	p.Category = strings.TrimSpace(p.Category)
	p.Team = strings.TrimSpace(p.Team)
	p.School = strings.TrimSpace(p.School)
	p.Contact = strings.TrimSpace(p.Contact)
	return p
}

// CreateProject stores a new project. An id already in use is a conflict.
func (s *Service) CreateProject(ctx context.Context, p Project) (Project, error) {
	p = normalizeProject(p)
	if p.ID == "" {
		p.ID = s.newID()
	} else if _, err := s.store.GetProject(ctx, p.ID); err == nil {
		return Project{}, fmt.Errorf("project %q: %w", p.ID, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Project{}, err
	}
	return s.saveProject(ctx, p)
}

// SaveProject upserts the project under id.
func (s *Service) SaveProject(ctx context.Context, id string, p Project) (Project, error) {
	p.ID = id
	p = normalizeProject(p)
	if p.ID == "" {
		return Project{}, invalid("id: required")
	}
	return s.saveProject(ctx, p)
}

func (s *Service) saveProject(ctx context.Context, p Project) (Project, error) {
	if err := checkStruct(p); err != nil {
		return Project{}, err
	}
	if err := s.store.UpsertProject(ctx, p); err != nil {
		return Project{}, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.store.DeleteProject(ctx, id)
}

func (s *Service) BulkUpsertProjects(ctx context.Context, in []Project) BulkReport {
	return bulkUpsert(ctx, s.log, "project", in, func(ctx context.Context, p Project) (string, error) {
		p = normalizeProject(p)
		if p.ID == "" {
			p.ID = s.newID()
		}
		_, err := s.saveProject(ctx, p)
		return p.ID, err
	})
}

// ---- evaluators ----

func normalizeEvaluator(e Evaluator) Evaluator {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	e.Expertise = strings.TrimSpace(e.Expertise)
	e.Notes = strings.TrimSpace(e.Notes)
	return e
}

func (s *Service) CreateEvaluator(ctx context.Context, e Evaluator) (Evaluator, error) {
	e = normalizeEvaluator(e)
	if e.ID == "" {
		e.ID = s.newID()
	} else if _, err := s.store.GetEvaluator(ctx, e.ID); err == nil {
		return Evaluator{}, fmt.Errorf("evaluator %q: %w", e.ID, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Evaluator{}, err
	}
	return s.saveEvaluator(ctx, e)
}

func (s *Service) SaveEvaluator(ctx context.Context, id string, e Evaluator) (Evaluator, error) {
	e.ID = id
	e = normalizeEvaluator(e)
	if e.ID == "" {
		return Evaluator{}, invalid("id: required")
	}
	return s.saveEvaluator(ctx, e)
}

func (s *Service) saveEvaluator(ctx context.Context, e Evaluator) (Evaluator, error) {
	if err := checkStruct(e); err != nil {
		return Evaluator{}, err
	}
	if err := s.store.UpsertEvaluator(ctx, e); err != nil {
		return Evaluator{}, fmt.Errorf("save evaluator: %w", err)
	}
	return e, nil
}

func (s *Service) DeleteEvaluator(ctx context.Context, id string) error {
	return s.store.DeleteEvaluator(ctx, id)
}

func (s *Service) BulkUpsertEvaluators(ctx context.Context, in []Evaluator) BulkReport {
	return bulkUpsert(ctx, s.log, "evaluator", in, func(ctx context.Context, e Evaluator) (string, error) {
		e = normalizeEvaluator(e)
		if e.ID == "" {
			e.ID = s.newID()
		}
		_, err := s.saveEvaluator(ctx, e)
		return e.ID, err
	})
}

// EvaluatorExists backs the token check that rejects deleted evaluators.
func (s *Service) EvaluatorExists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.GetEvaluator(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// UpdateProfile lets an evaluator edit their own name, expertise and notes.
// Fields absent from p keep their stored value.
func (s *Service) UpdateProfile(ctx context.Context, callerID string, p Profile) (Evaluator, error) {
	if callerID == "" {
		return Evaluator{}, errNotEvaluator
	}
	if p.ID == "" {
		p.ID = callerID
	}
	if p.ID != callerID {
		return Evaluator{}, fmt.Errorf("%w: cannot edit another evaluator's profile", ErrPermission)
	}
	e, err := s.store.GetEvaluator(ctx, p.ID)
	if err != nil {
		return Evaluator{}, err
	}
	for _, f := range []struct {
		dst *string
		v   *string
	}{{&e.Name, p.Name}, {&e.Expertise, p.Expertise}, {&e.Notes, p.Notes}} {
		if f.v != nil {
			*f.dst = strings.TrimSpace(*f.v)
		}
	}
	if err := s.store.UpsertEvaluator(ctx, e); err != nil {
		return Evaluator{}, fmt.Errorf("save profile: %w", err)
	}
	return e, nil
}

// ---- panels ----

// OverlapError is returned when overlap blocking is on and a panel claims
// members already held by another panel.
type OverlapError struct {
	Conflicts Claims
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("panel overlaps other panels: evaluators %v, projects %v",
		e.Conflicts.EvaluatorIDs, e.Conflicts.ProjectIDs)
}

func (e *OverlapError) Unwrap() error { return ErrConflict }

// CreatePanel stores a new panel and returns any overlap with other panels.
func (s *Service) CreatePanel(ctx context.Context, p Panel) (Panel, Claims, error) {
	p = normalizePanel(p)
	if p.ID == "" {
		p.ID = s.newID()
	} else if _, err := s.store.GetPanel(ctx, p.ID); err == nil {
		return Panel{}, Claims{}, fmt.Errorf("panel %q: %w", p.ID, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Panel{}, Claims{}, err
	}
	return s.savePanel(ctx, p)
}

func (s *Service) SavePanel(ctx context.Context, id string, p Panel) (Panel, Claims, error) {
	p.ID = id
	p = normalizePanel(p)
	if p.ID == "" {
		return Panel{}, Claims{}, invalid("id: required")
	}
	return s.savePanel(ctx, p)
}

func (s *Service) savePanel(ctx context.Context, p Panel) (Panel, Claims, error) {
	if err := s.rules.ValidatePanel(p); err != nil {
		return Panel{}, Claims{}, err
	}
	if err := s.checkPanelMembers(ctx, p); err != nil {
		return Panel{}, Claims{}, err
	}
	panels, err := s.store.ListPanels(ctx)
	if err != nil {
		return Panel{}, Claims{}, err
	}
	conflicts := PanelConflicts(panels, p)
	if !conflicts.Empty() {
		if s.blockOverlap {
			return Panel{}, conflicts, &OverlapError{Conflicts: conflicts}
		}
		s.log.Warn("panel overlaps other panels", "panel", p.ID,
			"evaluators", conflicts.EvaluatorIDs, "projects", conflicts.ProjectIDs)
	}
	if err := s.store.UpsertPanel(ctx, p); err != nil {
		return Panel{}, Claims{}, fmt.Errorf("save panel: %w", err)
	}
	return p, conflicts, nil
}

// checkPanelMembers rejects member ids with no stored evaluator or project.
func (s *Service) checkPanelMembers(ctx context.Context, p Panel) error {
	evaluators, err := s.store.ListEvaluators(ctx)
	if err != nil {
		return err
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(evaluators)+len(projects))
	for _, e := range evaluators {
		known["e:"+e.ID] = true
	}
	for _, pr := range projects {
		known["p:"+pr.ID] = true
	}
	var pr problems
	for _, id := range p.EvaluatorIDs {
		if !known["e:"+id] {
			pr.addf("evaluatorIds: unknown evaluator %q", id)
		}
	}
	for _, id := range p.ProjectIDs {
		if !known["p:"+id] {
			pr.addf("projectIds: unknown project %q", id)
		}
	}
	return pr.err()
}

func (s *Service) DeletePanel(ctx context.Context, id string) error {
	return s.store.DeletePanel(ctx, id)
}

// PanelClaims lists members held by panels other than excludeID.
func (s *Service) PanelClaims(ctx context.Context, excludeID string) (Claims, error) {
	panels, err := s.store.ListPanels(ctx)
	if err != nil {
		return Claims{}, err
	}
	return ClaimedByOthers(panels, excludeID), nil
}

// ---- evaluation ----

// errNotEvaluator guards evaluator-only operations against callers that
// carry no evaluator identity, such as admins.
var errNotEvaluator = fmt.Errorf("%w: evaluator identity required", ErrPermission)

func (s *Service) Assignments(ctx context.Context, evaluatorID string) (Worklist, error) {
	if evaluatorID == "" {
		return Worklist{}, errNotEvaluator
	}
	panels, err := s.store.ListPanels(ctx)
	if err != nil {
		return Worklist{}, err
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return Worklist{}, err
	}
	results, err := s.store.ListResultsByEvaluator(ctx, evaluatorID)
	if err != nil {
		return Worklist{}, err
	}
	st, err := s.store.GetEvaluatorState(ctx, evaluatorID)
	if err != nil {
		return Worklist{}, err
	}
	return BuildWorklist(evaluatorID, panels, projects, results, st), nil
}

// SubmitResult creates or replaces the caller's result for one project.
// There is at most one result per (project, evaluator); a resubmission keeps
// the stored id. The total is recomputed from the scores.
func (s *Service) SubmitResult(ctx context.Context, callerID string, in Result) (Result, error) {
	if callerID == "" {
		return Result{}, errNotEvaluator
	}
	if in.EvaluatorID == "" {
		in.EvaluatorID = callerID
	}
	if in.EvaluatorID != callerID {
		return Result{}, fmt.Errorf("%w: cannot save for another evaluator", ErrPermission)
	}
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	if in.ProjectID == "" {
		return Result{}, invalid("projectId: required")
	}

	st, err := s.store.GetEvaluatorState(ctx, callerID)
	if err != nil {
		return Result{}, err
	}
	if StateOf(st) == StateLocked {
		return Result{}, ErrFinalizationLocked
	}

	panels, err := s.store.ListPanels(ctx)
	if err != nil {
		return Result{}, err
	}
	panel, ok := PanelFor(panels, callerID, in.ProjectID)
	if !ok {
		return Result{}, fmt.Errorf("%w: project %q is not assigned to you", ErrPermission, in.ProjectID)
	}
	if _, err := s.store.GetProject(ctx, in.ProjectID); errors.Is(err, ErrNotFound) {
		return Result{}, fmt.Errorf("%w: project %q no longer exists", ErrPermission, in.ProjectID)
	} else if err != nil {
		return Result{}, err
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return Result{}, err
	}
	if in.Scores == nil {
		in.Scores = Scores{}
	}
	if err := settings.Rubric.checkScores(in.Scores); err != nil {
		return Result{}, err
	}

	out := Result{
		ProjectID:   in.ProjectID,
		EvaluatorID: callerID,
		PanelID:     in.PanelID,
		Scores:      in.Scores,
		Remark:      strings.TrimSpace(in.Remark),
		Total:       in.Scores.Sum(),
		Timestamp:   s.now().UTC(),
	}
	if out.PanelID == "" || !bindsPair(panels, out.PanelID, callerID, in.ProjectID) {
		out.PanelID = panel.ID
	}
	out.ID = s.newID()
	out.CreatedAt = out.Timestamp
	stored, err := s.store.UpsertResult(ctx, out)
	if err != nil {
		return Result{}, fmt.Errorf("save result: %w", err)
	}
	return stored, nil
}

func bindsPair(panels []Panel, panelID, evaluatorID, projectID string) bool {
	for _, p := range panels {
		if p.ID == panelID {
			return p.hasEvaluator(evaluatorID) && p.hasProject(projectID)
		}
	}
	return false
}

// Finalize locks the evaluator's results once every assigned project has
// one. Finalizing an already locked evaluator is a no-op.
func (s *Service) Finalize(ctx context.Context, callerID, evaluatorID string) (Worklist, error) {
	if callerID == "" {
		return Worklist{}, errNotEvaluator
	}
	if evaluatorID == "" {
		evaluatorID = callerID
	}
	if evaluatorID != callerID {
		return Worklist{}, fmt.Errorf("%w: cannot finalize for another evaluator", ErrPermission)
	}
	w, err := s.Assignments(ctx, evaluatorID)
	if err != nil {
		return Worklist{}, err
	}
	if w.State == StateLocked {
		return w, nil
	}
	if err := w.Progress.CheckFinalize(); err != nil {
		return Worklist{}, err
	}
	if err := s.store.SetFinalized(ctx, evaluatorID, true); err != nil {
		return Worklist{}, fmt.Errorf("finalize: %w", err)
	}
	w.State = StateLocked
	s.log.Info("evaluator finalized", "evaluator", evaluatorID, "evaluated", w.Progress.Evaluated)
	return w, nil
}

// ResetFinalization reopens one evaluator, or every evaluator when
// evaluatorID is empty, and reports how many were reopened.
func (s *Service) ResetFinalization(ctx context.Context, evaluatorID string) (int64, error) {
	n, err := s.store.ResetFinalization(ctx, evaluatorID)
	if err != nil {
		return 0, fmt.Errorf("reset finalization: %w", err)
	}
	s.log.Info("finalization reset", "evaluator", evaluatorID, "reopened", n)
	return n, nil
}

// ---- scoring views ----

func (s *Service) Rankings(ctx context.Context) ([]ProjectScore, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.store.ListResults(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(projects, results, settings.Rubric), nil
}

func (s *Service) ProjectDetail(ctx context.Context, projectID string) (ProjectDetail, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, err
	}
	snap, err := s.Snapshot(ctx, true)
	if err != nil {
		return ProjectDetail{}, err
	}
	return Detail(project, snap.Evaluators, snap.Results, snap.Settings.Rubric), nil
}

func (s *Service) Export(ctx context.Context) (Table, error) {
	snap, err := s.Snapshot(ctx, true)
	if err != nil {
		return Table{}, err
	}
	return exportOf(snap), nil
}

func exportOf(snap Snapshot) Table {
	return Export(snap.Projects, snap.Evaluators, snap.Results, snap.Settings.Rubric)
}

// ---- maintenance ----

// ClearResults wipes every result and finalization state.
func (s *Service) ClearResults(ctx context.Context) error {
	if err := s.store.ClearResults(ctx); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	s.log.Warn("results cleared")
	return nil
}

// ResetAll wipes everything but settings. When backups are configured the
// current data is written out first and the reset is aborted if that fails.
func (s *Service) ResetAll(ctx context.Context, reason string) ([]string, error) {
	var keys []string
	if s.backups != nil {
		var err error
		if keys, err = s.Backup(ctx); err != nil {
			return nil, fmt.Errorf("backup before reset: %w", err)
		}
	}
	if err := s.store.ResetAll(ctx); err != nil {
		return keys, fmt.Errorf("reset: %w", err)
	}
	s.log.Warn("all event data reset", "reason", reason, "backups", keys)
	return keys, nil
}

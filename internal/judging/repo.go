package judging

import "context"

// Store is the durable entity store. Writes are last-write-wins; there is no
// version check between concurrent writers.
type Store interface {
	// GetSettings reports found=false when no settings document exists yet.
	GetSettings(ctx context.Context) (s Setting, found bool, err error)
	PutSettings(ctx context.Context, s Setting) error

	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	UpsertProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, id string) error

	ListEvaluators(ctx context.Context) ([]Evaluator, error)
	GetEvaluator(ctx context.Context, id string) (Evaluator, error)
	FindEvaluatorsByEmail(ctx context.Context, email string) ([]Evaluator, error)
	UpsertEvaluator(ctx context.Context, e Evaluator) error
	DeleteEvaluator(ctx context.Context, id string) error

	ListPanels(ctx context.Context) ([]Panel, error)
	GetPanel(ctx context.Context, id string) (Panel, error)
	UpsertPanel(ctx context.Context, p Panel) error
	DeletePanel(ctx context.Context, id string) error

	// ListResults returns results in first-submission order; edits do not
	// move a result.
	ListResults(ctx context.Context) ([]Result, error)
	ListResultsByEvaluator(ctx context.Context, evaluatorID string) ([]Result, error)
	// UpsertResult inserts or replaces the result for r's (project,
	// evaluator) pair and returns the stored row, whose id is the one first
	// written for that pair.
	UpsertResult(ctx context.Context, r Result) (Result, error)

	ListEvaluatorStates(ctx context.Context) ([]EvaluatorState, error)
	// GetEvaluatorState returns an Open state when none is stored.
	GetEvaluatorState(ctx context.Context, evaluatorID string) (EvaluatorState, error)
	SetFinalized(ctx context.Context, evaluatorID string, finalized bool) error
	// ResetFinalization reopens one evaluator, or all when evaluatorID is empty.
	ResetFinalization(ctx context.Context, evaluatorID string) (int64, error)

	// ClearResults wipes results and finalization state.
	ClearResults(ctx context.Context) error
	// ResetAll wipes everything except settings.
	ResetAll(ctx context.Context) error
}

package judging

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/judging/internal/db"
)

var dbSeq atomic.Int64

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

// stepClock advances one second per call so result timestamps are ordered.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T, opts ...Option) (*Service, *SQLStore) {
	t.Helper()
	store := NewSQLStore(openTestDB(t))
	clock := &stepClock{t: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	base := []Option{WithBcryptCost(bcrypt.MinCost), WithClock(clock.Now), WithLogger(quietLog)}
	return NewService(store, append(base, opts...)...), store
}

func ptr[T any](v T) *T { return &v }

func fullScores(r Rubric, v float64) Scores {
	s := Scores{}
	for _, it := range r {
		s[it.Key] = v
	}
	return s
}

// seedEvent stores evaluators e1..e3, projects p1..p3 and panel pa binding
// all three evaluators to p1 and p2.
func seedEvent(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("e%d", i)
		if _, err := svc.CreateEvaluator(ctx, Evaluator{ID: id, Name: "Judge " + id, Email: id + "@example.com", Code: "code-" + id}); err != nil {
			t.Fatalf("create evaluator %s: %v", id, err)
		}
	}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("p%d", i)
		if _, err := svc.CreateProject(ctx, Project{ID: id, Title: "Project " + id}); err != nil {
			t.Fatalf("create project %s: %v", id, err)
		}
	}
	if _, _, err := svc.CreatePanel(ctx, Panel{ID: "pa", Name: "Panel A", EvaluatorIDs: []string{"e1", "e2", "e3"}, ProjectIDs: []string{"p1", "p2"}}); err != nil {
		t.Fatalf("create panel: %v", err)
	}
}

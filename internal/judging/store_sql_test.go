package judging

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSQLStoreSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))

	if _, found, err := s.GetSettings(ctx); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}
	want := DefaultSettings()
	want.AdminPasswordHash = "hash"
	if err := s.PutSettings(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, found, err := s.GetSettings(ctx)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.AdminPasswordHash != "hash" || got.EventTitle != want.EventTitle || !reflect.DeepEqual(got.Rubric, want.Rubric) {
		t.Fatalf("settings = %+v", got)
	}
	doc, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(doc), "adminPassword") || strings.Contains(string(doc), "hash") {
		t.Fatalf("password material serialized: %s", doc)
	}
}

func TestSQLStoreEntities(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))

	if err := s.UpsertProject(ctx, Project{ID: "p1", Title: "First"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertProject(ctx, Project{ID: "p1", Title: "Renamed", School: "North"}); err != nil {
		t.Fatal(err)
	}
	p, err := s.GetProject(ctx, "p1")
	if err != nil || p.Title != "Renamed" || p.School != "North" {
		t.Fatalf("project = %+v, %v", p, err)
	}
	if err := s.DeleteProject(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteProject(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
	if _, err := s.GetProject(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}

	for _, e := range []Evaluator{
		{ID: "e1", Email: "same@example.com", Code: "a"},
		{ID: "e2", Email: "same@example.com", Code: "b"},
	} {
		if err := s.UpsertEvaluator(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	same, err := s.FindEvaluatorsByEmail(ctx, "same@example.com")
	if err != nil || len(same) != 2 {
		t.Fatalf("by email = %v, %v", same, err)
	}

	pn := Panel{ID: "x", Name: "X", EvaluatorIDs: []string{"e1", "e2"}, ProjectIDs: nil}
	if err := s.UpsertPanel(ctx, pn); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetPanel(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.EvaluatorIDs, []string{"e1", "e2"}) || got.ProjectIDs == nil {
		t.Fatalf("panel = %+v", got)
	}
}

func TestSQLStoreResultOrderSurvivesEdits(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))
	ts := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	for i, ev := range []string{"e1", "e2", "e3"} {
		r := Result{ID: "r-" + ev, ProjectID: "p1", EvaluatorID: ev, Scores: Scores{}, Timestamp: ts.Add(time.Duration(i) * time.Minute)}
		if _, err := s.UpsertResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	edit := Result{ID: "ignored", ProjectID: "p1", EvaluatorID: "e1", Scores: Scores{"a": 2}, Total: 2, Timestamp: ts.Add(time.Hour)}
	if _, err := s.UpsertResult(ctx, edit); err != nil {
		t.Fatal(err)
	}
	all, err := s.ListResults(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, r := range all {
		order = append(order, r.EvaluatorID)
	}
	if !reflect.DeepEqual(order, []string{"e1", "e2", "e3"}) {
		t.Fatalf("order after edit = %v", order)
	}
}

func TestSQLStoreResultsAndState(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))
	ts := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	r := Result{ID: "r1", ProjectID: "p1", EvaluatorID: "e1", Scores: Scores{"a": 4}, Total: 4, Timestamp: ts}
	if _, err := s.UpsertResult(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Scores = Scores{"a": 9}
	r.Total = 9
	r.Timestamp = ts.Add(time.Hour)
	if _, err := s.UpsertResult(ctx, r); err != nil {
		t.Fatal(err)
	}
	all, err := s.ListResults(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("results = %v, %v", all, err)
	}
	if all[0].Total != 9 || all[0].Scores.Get("a") != 9 || !all[0].Timestamp.Equal(ts.Add(time.Hour)) || !all[0].CreatedAt.Equal(ts) {
		t.Fatalf("result = %+v", all[0])
	}

	// a fresh id for an existing pair updates the pair and keeps the first id
	dup := Result{ID: "r2", ProjectID: "p1", EvaluatorID: "e1", Scores: Scores{"a": 1}, Total: 1, Timestamp: ts.Add(2 * time.Hour)}
	stored, err := s.UpsertResult(ctx, dup)
	if err != nil {
		t.Fatalf("pair upsert: %v", err)
	}
	if stored.ID != "r1" || stored.Total != 1 || !stored.CreatedAt.Equal(ts) {
		t.Fatalf("stored = %+v", stored)
	}
	if all, _ := s.ListResults(ctx); len(all) != 1 {
		t.Fatalf("pair upsert duplicated rows: %v", all)
	}

	st, err := s.GetEvaluatorState(ctx, "e1")
	if err != nil || st.FinalizedAll {
		t.Fatalf("default state = %+v, %v", st, err)
	}
	for _, id := range []string{"e1", "e2"} {
		if err := s.SetFinalized(ctx, id, true); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.ResetFinalization(ctx, "e1")
	if err != nil || n != 1 {
		t.Fatalf("reset one = %d, %v", n, err)
	}
	n, err = s.ResetFinalization(ctx, "")
	if err != nil || n != 1 {
		t.Fatalf("reset all = %d, %v", n, err)
	}

	if err := s.ClearResults(ctx); err != nil {
		t.Fatal(err)
	}
	states, _ := s.ListEvaluatorStates(ctx)
	results, _ := s.ListResults(ctx)
	if len(states) != 0 || len(results) != 0 {
		t.Fatalf("after clear: %d states, %d results", len(states), len(results))
	}
}

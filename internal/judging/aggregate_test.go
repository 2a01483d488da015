package judging

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRankAveragesStoredTotals(t *testing.T) {
	rubric := DefaultRubric()
	projects := []Project{{ID: "p1", Title: "A"}, {ID: "p2", Title: "B"}, {ID: "p3", Title: "C"}}
	results := []Result{
		// stored totals win over the score map
		{ProjectID: "p2", EvaluatorID: "e1", Scores: Scores{"problem": 1}, Total: 40},
		{ProjectID: "p2", EvaluatorID: "e2", Total: 50},
		{ProjectID: "p1", EvaluatorID: "e1", Total: 30},
	}

	got := Rank(projects, results, rubric)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ProjectID != "p2" || got[1].ProjectID != "p1" || got[2].ProjectID != "p3" {
		t.Fatalf("order = %s,%s,%s", got[0].ProjectID, got[1].ProjectID, got[2].ProjectID)
	}
	top := got[0]
	if top.EvaluatorCount != 2 || !approx(top.TotalScore, 90) || !approx(top.AverageScore, 45) {
		t.Fatalf("p2 = %+v", top)
	}
	if !approx(top.MaxPossible, 60) || !approx(top.Percentage, 75) {
		t.Fatalf("p2 max/pct = %v/%v", top.MaxPossible, top.Percentage)
	}
	if top.Rank != 1 || !top.Highlight {
		t.Fatalf("p2 rank/highlight = %d/%v", top.Rank, top.Highlight)
	}
}

func TestRankZeroEvaluationsNeverHighlighted(t *testing.T) {
	projects := []Project{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}
	got := Rank(projects, nil, DefaultRubric())
	for _, ps := range got {
		if ps.AverageScore != 0 || ps.Percentage != 0 {
			t.Fatalf("%s avg/pct = %v/%v", ps.ProjectID, ps.AverageScore, ps.Percentage)
		}
		if ps.Highlight {
			t.Fatalf("%s highlighted with zero evaluations", ps.ProjectID)
		}
	}
	// ties keep input order
	if got[0].ProjectID != "p1" || got[2].ProjectID != "p3" {
		t.Fatalf("tie order changed: %s..%s", got[0].ProjectID, got[2].ProjectID)
	}
}

func TestRankHighlightsTopFive(t *testing.T) {
	var projects []Project
	var results []Result
	for i := 0; i < 7; i++ {
		id := string(rune('a' + i))
		projects = append(projects, Project{ID: id})
		results = append(results, Result{ProjectID: id, EvaluatorID: "e", Total: float64(10 * (i + 1))})
	}
	got := Rank(projects, results, DefaultRubric())
	for i, ps := range got {
		if want := i < HighlightCount; ps.Highlight != want {
			t.Fatalf("rank %d highlight = %v, want %v", ps.Rank, ps.Highlight, want)
		}
	}
	if got[0].ProjectID != "g" {
		t.Fatalf("top = %s, want g", got[0].ProjectID)
	}
}

func TestMaxPossibleIgnoresConfiguredMaxPoints(t *testing.T) {
	r := DefaultRubric()
	for i := range r {
		r[i].MaxPoints = 25
	}
	if got := r.MaxPossible(); got != 60 {
		t.Fatalf("MaxPossible = %v, want 60", got)
	}
	two := Rubric{{Key: "a", Label: "A", MaxPoints: 10}, {Key: "b", Label: "B", MaxPoints: 10}}
	if got := two.MaxPossible(); got != 20 {
		t.Fatalf("MaxPossible = %v, want 20", got)
	}
}

func TestDetailFallsBackToEmailThenUnknown(t *testing.T) {
	rubric := Rubric{{Key: "a", Label: "A", MaxPoints: 10}, {Key: "b", Label: "B", MaxPoints: 10}}
	evaluators := []Evaluator{{ID: "e1", Name: "Ada"}, {ID: "e2", Email: "bo@example.com"}}
	results := []Result{
		{ID: "r1", ProjectID: "p1", EvaluatorID: "e1", Scores: Scores{"a": 7, "b": 8}, Total: 15, Remark: "good"},
		{ID: "r2", ProjectID: "p1", EvaluatorID: "e2", Scores: Scores{"a": 5}, Total: 5},
		{ID: "r3", ProjectID: "p1", EvaluatorID: "gone", Scores: Scores{"old": 9}, Total: 9},
		{ID: "r4", ProjectID: "p2", EvaluatorID: "e1", Total: 1},
	}
	d := Detail(Project{ID: "p1"}, evaluators, results, rubric)
	if len(d.Evaluations) != 3 {
		t.Fatalf("evaluations = %d, want 3", len(d.Evaluations))
	}
	names := []string{d.Evaluations[0].EvaluatorName, d.Evaluations[1].EvaluatorName, d.Evaluations[2].EvaluatorName}
	want := []string{"Ada", "bo@example.com", UnknownEvaluator}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	// missing key reads as zero; stale keys are ignored
	bd := d.Evaluations[1].Breakdown
	if len(bd) != 2 || bd[1].Key != "b" || bd[1].Score != 0 {
		t.Fatalf("breakdown = %+v", bd)
	}
	if len(d.Evaluations[2].Breakdown) != 2 {
		t.Fatalf("stale breakdown = %+v", d.Evaluations[2].Breakdown)
	}
}

func TestExportWidensToLargestPanel(t *testing.T) {
	rubric := Rubric{{Key: "a", Label: "A", MaxPoints: 10}, {Key: "b", Label: "B", MaxPoints: 10}}
	projects := []Project{{ID: "p1", Title: "One"}, {ID: "p2", Title: "Two"}}
	evaluators := []Evaluator{{ID: "e1", Name: "Ada"}, {ID: "e2", Name: "Bo"}}
	results := []Result{
		{ProjectID: "p1", EvaluatorID: "e1", Scores: Scores{"a": 7, "b": 8}, Total: 15, Remark: "line one\nline two"},
		{ProjectID: "p1", EvaluatorID: "e2", Scores: Scores{"a": 6.5}, Total: 6.5},
		{ProjectID: "p2", EvaluatorID: "e1", Scores: Scores{"a": 1, "b": 2}, Total: 3},
	}
	tbl := Export(projects, evaluators, results, rubric)

	// 6 fixed columns + 2 evaluator groups of (name, a, b, total, remark)
	if len(tbl.Header) != 16 {
		t.Fatalf("header len = %d: %v", len(tbl.Header), tbl.Header)
	}
	if tbl.Header[6] != "Eval 1 Name" || tbl.Header[7] != "Eval 1 a" || tbl.Header[15] != "Eval 2 Remark" {
		t.Fatalf("header = %v", tbl.Header)
	}
	for i, row := range tbl.Rows {
		if len(row) != len(tbl.Header) {
			t.Fatalf("row %d len = %d, want %d", i, len(row), len(tbl.Header))
		}
	}
	p1 := tbl.Rows[0]
	if p1[5] != "10.75" {
		t.Fatalf("p1 avg = %q", p1[5])
	}
	if p1[10] != "line one line two" {
		t.Fatalf("remark = %q", p1[10])
	}
	if p1[13] != "0" {
		t.Fatalf("missing score = %q, want 0", p1[13])
	}
	p2 := tbl.Rows[1]
	for _, cell := range p2[11:] {
		if cell != "" {
			t.Fatalf("p2 trailing cells not blank: %v", p2[11:])
		}
	}

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	recs, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 3 || recs[0][0] != "Project ID" {
		t.Fatalf("csv = %v", recs)
	}
}

func TestExportNoResults(t *testing.T) {
	tbl := Export([]Project{{ID: "p1"}}, nil, nil, DefaultRubric())
	if len(tbl.Header) != 6 || tbl.Rows[0][5] != "0" {
		t.Fatalf("table = %+v", tbl)
	}
}

package judging

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// HighlightCount is how many top-ranked projects get flagged.
const HighlightCount = 5

// UnknownEvaluator names results whose evaluator record is gone.
const UnknownEvaluator = "Unknown"

type ProjectScore struct {
	ProjectID      string  `json:"id"`
	Title          string  `json:"title"`
	Category       string  `json:"category"`
	Team           string  `json:"team"`
	School         string  `json:"school"`
	EvaluatorCount int     `json:"evaluatorCount"`
	TotalScore     float64 `json:"totalScore"`
	AverageScore   float64 `json:"averageScore"`
	MaxPossible    float64 `json:"maxPossible"`
	Percentage     float64 `json:"percentage"`
	Rank           int     `json:"rank"`
	Highlight      bool    `json:"highlight"`
}

func resultsByProject(results []Result) map[string][]Result {
	out := make(map[string][]Result)
	for _, r := range results {
		out[r.ProjectID] = append(out[r.ProjectID], r)
	}
	return out
}

// Rank scores every project from the stored result totals and orders them by
// average, highest first. Ties keep input order. The first HighlightCount
// projects with at least one evaluation are highlighted.
func Rank(projects []Project, results []Result, rubric Rubric) []ProjectScore {
	byProject := resultsByProject(results)
	maxPossible := rubric.MaxPossible()

	out := make([]ProjectScore, 0, len(projects))
	for _, p := range projects {
		ps := ProjectScore{
			ProjectID:   p.ID,
			Title:       p.Title,
			Category:    p.Category,
			Team:        p.Team,
			School:      p.School,
			MaxPossible: maxPossible,
		}
		rs := byProject[p.ID]
		ps.EvaluatorCount = len(rs)
		for _, r := range rs {
			ps.TotalScore += r.Total
		}
		if ps.EvaluatorCount > 0 {
			ps.AverageScore = ps.TotalScore / float64(ps.EvaluatorCount)
			if maxPossible > 0 {
				ps.Percentage = ps.AverageScore / maxPossible * 100
			}
		}
		out = append(out, ps)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AverageScore > out[j].AverageScore })
	for i := range out {
		out[i].Rank = i + 1
		out[i].Highlight = i < HighlightCount && out[i].EvaluatorCount > 0
	}
	return out
}

// CriterionScore is one rubric line in a detail view.
type CriterionScore struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	MaxPoints float64 `json:"maxPoints"`
}

type EvaluationDetail struct {
	ResultID      string           `json:"resultId"`
	EvaluatorID   string           `json:"evaluatorId"`
	EvaluatorName string           `json:"evaluatorName"`
	Breakdown     []CriterionScore `json:"breakdown"`
	Total         float64          `json:"total"`
	Remark        string           `json:"remark"`
}

type ProjectDetail struct {
	Project     Project            `json:"project"`
	Evaluations []EvaluationDetail `json:"evaluations"`
}

func evaluatorNames(evaluators []Evaluator) map[string]string {
	out := make(map[string]string, len(evaluators))
	for _, e := range evaluators {
		out[e.ID] = e.DisplayName()
	}
	return out
}

func nameOf(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return UnknownEvaluator
}

// Detail lists every evaluation of one project with its per-criterion
// breakdown against the active rubric.
func Detail(project Project, evaluators []Evaluator, results []Result, rubric Rubric) ProjectDetail {
	names := evaluatorNames(evaluators)
	d := ProjectDetail{Project: project, Evaluations: []EvaluationDetail{}}
	for _, r := range results {
		if r.ProjectID != project.ID {
			continue
		}
		ed := EvaluationDetail{
			ResultID:      r.ID,
			EvaluatorID:   r.EvaluatorID,
			EvaluatorName: nameOf(names, r.EvaluatorID),
			Breakdown:     make([]CriterionScore, 0, len(rubric)),
			Total:         r.Total,
			Remark:        r.Remark,
		}
		for _, it := range rubric {
			ed.Breakdown = append(ed.Breakdown, CriterionScore{
				Key:       it.Key,
				Label:     it.Label,
				Score:     r.Scores.Get(it.Key),
				MaxPoints: it.MaxPoints,
			})
		}
		d.Evaluations = append(d.Evaluations, ed)
	}
	return d
}

// Table is a flat export: one header row and one row per project.
type Table struct {
	Header []string
	Rows   [][]string
}

// Export builds the per-project score table. Evaluator column groups are
// widened to the largest evaluation count of any project; shorter rows are
// blank-filled.
func Export(projects []Project, evaluators []Evaluator, results []Result, rubric Rubric) Table {
	keys := rubric.Keys()
	names := evaluatorNames(evaluators)
	byProject := resultsByProject(results)

	maxEvals := 0
	for _, p := range projects {
		if n := len(byProject[p.ID]); n > maxEvals {
			maxEvals = n
		}
	}

	header := []string{"Project ID", "Title", "Team", "School", "Category", "Avg Score"}
	for i := 1; i <= maxEvals; i++ {
		header = append(header, fmt.Sprintf("Eval %d Name", i))
		for _, k := range keys {
			header = append(header, fmt.Sprintf("Eval %d %s", i, k))
		}
		header = append(header, fmt.Sprintf("Eval %d Total", i), fmt.Sprintf("Eval %d Remark", i))
	}

	groupWidth := len(keys) + 3
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rs := byProject[p.ID]
		avg := "0"
		if len(rs) > 0 {
			sum := 0.0
			for _, r := range rs {
				sum += r.Total
			}
			avg = strconv.FormatFloat(sum/float64(len(rs)), 'f', 2, 64)
		}
		row := []string{p.ID, p.Title, p.Team, p.School, p.Category, avg}
		for i := 0; i < maxEvals; i++ {
			if i >= len(rs) {
				row = append(row, make([]string, groupWidth)...)
				continue
			}
			r := rs[i]
			row = append(row, nameOf(names, r.EvaluatorID))
			for _, k := range keys {
				row = append(row, formatPoints(r.Scores.Get(k)))
			}
			row = append(row, formatPoints(r.Total), strings.ReplaceAll(r.Remark, "\n", " "))
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// WriteCSV renders the table as CSV.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package judging

// FinalizationState is an evaluator's edit gate.
type FinalizationState string

const (
	StateOpen   FinalizationState = "open"
	StateLocked FinalizationState = "locked"
)

func StateOf(st EvaluatorState) FinalizationState {
	if st.FinalizedAll {
		return StateLocked
	}
	return StateOpen
}

// Progress counts an evaluator's assignment against their submitted results.
type Progress struct {
	Assigned  int `json:"assigned"`
	Evaluated int `json:"evaluated"`
	Remaining int `json:"remaining"`
}

// ProgressOf takes one evaluator's results and counts only assigned project
// ids. Results for projects outside the assignment (a panel was edited after
// scoring) do not reduce Remaining.
func ProgressOf(assigned []string, results []Result) Progress {
	done := make(map[string]bool, len(results))
	for _, r := range results {
		done[r.ProjectID] = true
	}
	p := Progress{Assigned: len(assigned)}
	for _, id := range assigned {
		if done[id] {
			p.Evaluated++
		}
	}
	p.Remaining = p.Assigned - p.Evaluated
	return p
}

// CheckFinalize reports whether the Open→Locked transition is allowed.
func (p Progress) CheckFinalize() error {
	if p.Assigned == 0 {
		return invalid("no projects assigned")
	}
	if p.Remaining > 0 {
		return invalid("%d of %d assigned projects not yet evaluated", p.Remaining, p.Assigned)
	}
	return nil
}

const (
	StatusPending   = "pending"
	StatusEvaluated = "evaluated"
)

type WorkItem struct {
	Project  Project `json:"project"`
	PanelID  string  `json:"panelId"`
	Status   string  `json:"status"`
	ResultID string  `json:"resultId,omitempty"`
	Total    float64 `json:"total,omitempty"`
}

// Worklist is what an evaluator sees after login.
type Worklist struct {
	EvaluatorID string            `json:"evaluatorId"`
	Items       []WorkItem        `json:"items"`
	Progress    Progress          `json:"progress"`
	State       FinalizationState `json:"state"`
}

// BuildWorklist resolves the evaluator's assignment against the project list.
// Assigned ids whose project record is gone are skipped.
func BuildWorklist(evaluatorID string, panels []Panel, projects []Project, results []Result, st EvaluatorState) Worklist {
	byID := make(map[string]Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	mine := make(map[string]Result)
	var own []Result
	for _, r := range results {
		if r.EvaluatorID == evaluatorID {
			mine[r.ProjectID] = r
			own = append(own, r)
		}
	}

	var live []string
	w := Worklist{EvaluatorID: evaluatorID, Items: []WorkItem{}, State: StateOf(st)}
	for _, id := range AssignedProjects(panels, evaluatorID) {
		p, ok := byID[id]
		if !ok {
			continue
		}
		live = append(live, id)
		item := WorkItem{Project: p, Status: StatusPending}
		if pn, ok := PanelFor(panels, evaluatorID, id); ok {
			item.PanelID = pn.ID
		}
		if r, ok := mine[id]; ok {
			item.Status = StatusEvaluated
			item.ResultID = r.ID
			item.Total = r.Total
		}
		w.Items = append(w.Items, item)
	}
	w.Progress = ProgressOf(live, own)
	return w
}

package judging

import "strings"

// AssignedProjects returns the union of project ids over every panel that
// lists evaluatorID, without duplicates, in first-seen panel order. Overlap
// between panels is tolerated.
func AssignedProjects(panels []Panel, evaluatorID string) []string {
	var ids []string
	for _, p := range panels {
		if p.hasEvaluator(evaluatorID) {
			ids = append(ids, p.ProjectIDs...)
		}
	}
	return dedupe(ids)
}

// PanelFor returns the first panel binding evaluatorID to projectID.
func PanelFor(panels []Panel, evaluatorID, projectID string) (Panel, bool) {
	for _, p := range panels {
		if p.hasEvaluator(evaluatorID) && p.hasProject(projectID) {
			return p, true
		}
	}
	return Panel{}, false
}

// Claims lists evaluator and project ids held by panels.
type Claims struct {
	EvaluatorIDs []string `json:"evaluatorIds"`
	ProjectIDs   []string `json:"projectIds"`
}

func (c Claims) Empty() bool { return len(c.EvaluatorIDs) == 0 && len(c.ProjectIDs) == 0 }

// ClaimedByOthers collects the members of every panel except excludeID.
func ClaimedByOthers(panels []Panel, excludeID string) Claims {
	var ev, pr []string
	for _, p := range panels {
		if p.ID == excludeID {
			continue
		}
		ev = append(ev, p.EvaluatorIDs...)
		pr = append(pr, p.ProjectIDs...)
	}
	return Claims{EvaluatorIDs: dedupe(ev), ProjectIDs: dedupe(pr)}
}

// PanelConflicts reports which members of candidate are already claimed by
// other panels.
func PanelConflicts(panels []Panel, candidate Panel) Claims {
	taken := ClaimedByOthers(panels, candidate.ID)
	out := Claims{EvaluatorIDs: []string{}, ProjectIDs: []string{}}
	for _, id := range candidate.EvaluatorIDs {
		if contains(taken.EvaluatorIDs, id) {
			out.EvaluatorIDs = append(out.EvaluatorIDs, id)
		}
	}
	for _, id := range candidate.ProjectIDs {
		if contains(taken.ProjectIDs, id) {
			out.ProjectIDs = append(out.ProjectIDs, id)
		}
	}
	return out
}

// PanelRules are the edit-time membership minimums.
type PanelRules struct {
	MinEvaluators int
	MinProjects   int
}

var DefaultPanelRules = PanelRules{MinEvaluators: 3, MinProjects: 2}

// normalizePanel trims the name and de-duplicates membership.
func normalizePanel(p Panel) Panel {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.EvaluatorIDs = dedupe(p.EvaluatorIDs)
	p.ProjectIDs = dedupe(p.ProjectIDs)
	return p
}

// ValidatePanel checks required fields and membership minimums.
func (r PanelRules) ValidatePanel(p Panel) error {
	pr := problems(problemsOf(checkStruct(p)))
	if n := len(p.EvaluatorIDs); n < r.MinEvaluators {
		pr.addf("evaluatorIds: at least %d evaluators required, got %d", r.MinEvaluators, n)
	}
	if n := len(p.ProjectIDs); n < r.MinProjects {
		pr.addf("projectIds: at least %d projects required, got %d", r.MinProjects, n)
	}
	return pr.err()
}

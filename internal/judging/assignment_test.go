package judging

import (
	"errors"
	"reflect"
	"testing"
)

func TestAssignedProjectsUnionsOverlappingPanels(t *testing.T) {
	panels := []Panel{
		{ID: "a", EvaluatorIDs: []string{"e1", "e2"}, ProjectIDs: []string{"p1", "p2"}},
		{ID: "b", EvaluatorIDs: []string{"e1"}, ProjectIDs: []string{"p2", "p3"}},
		{ID: "c", EvaluatorIDs: []string{"e9"}, ProjectIDs: []string{"p4"}},
	}
	tests := []struct {
		evaluator string
		want      []string
	}{
		{"e1", []string{"p1", "p2", "p3"}},
		{"e2", []string{"p1", "p2"}},
		{"nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.evaluator, func(t *testing.T) {
			got := AssignedProjects(panels, tt.evaluator)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("AssignedProjects(%s) = %v, want %v", tt.evaluator, got, tt.want)
			}
		})
	}
}

func TestPanelFor(t *testing.T) {
	panels := []Panel{
		{ID: "a", EvaluatorIDs: []string{"e1"}, ProjectIDs: []string{"p1"}},
		{ID: "b", EvaluatorIDs: []string{"e1"}, ProjectIDs: []string{"p2"}},
	}
	if p, ok := PanelFor(panels, "e1", "p2"); !ok || p.ID != "b" {
		t.Fatalf("PanelFor = %v, %v; want b", p.ID, ok)
	}
	if _, ok := PanelFor(panels, "e2", "p1"); ok {
		t.Fatal("unexpected binding for e2")
	}
}

func TestPanelConflictsIgnoresSelf(t *testing.T) {
	panels := []Panel{
		{ID: "a", EvaluatorIDs: []string{"e1", "e2", "e3"}, ProjectIDs: []string{"p1", "p2"}},
		{ID: "b", EvaluatorIDs: []string{"e4", "e5", "e6"}, ProjectIDs: []string{"p3", "p4"}},
	}

	self := PanelConflicts(panels, panels[0])
	if !self.Empty() {
		t.Fatalf("editing a panel in place reported conflicts: %+v", self)
	}

	cand := Panel{ID: "c", EvaluatorIDs: []string{"e1", "e7", "e4"}, ProjectIDs: []string{"p5", "p3"}}
	got := PanelConflicts(panels, cand)
	want := Claims{EvaluatorIDs: []string{"e1", "e4"}, ProjectIDs: []string{"p3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PanelConflicts = %+v, want %+v", got, want)
	}

	claims := ClaimedByOthers(panels, "b")
	if !reflect.DeepEqual(claims.ProjectIDs, []string{"p1", "p2"}) {
		t.Fatalf("ClaimedByOthers projects = %v", claims.ProjectIDs)
	}
}

func TestValidatePanelMinimums(t *testing.T) {
	tests := []struct {
		name    string
		panel   Panel
		wantErr bool
	}{
		{
			name:    "two evaluators three projects",
			panel:   Panel{Name: "x", EvaluatorIDs: []string{"e1", "e2"}, ProjectIDs: []string{"p1", "p2", "p3"}},
			wantErr: true,
		},
		{
			name:  "three evaluators two projects",
			panel: Panel{Name: "x", EvaluatorIDs: []string{"e1", "e2", "e3"}, ProjectIDs: []string{"p1", "p2"}},
		},
		{
			name:    "duplicates do not count twice",
			panel:   normalizePanel(Panel{Name: "x", EvaluatorIDs: []string{"e1", "e1", "e2"}, ProjectIDs: []string{"p1", "p2"}}),
			wantErr: true,
		},
		{
			name:    "name required",
			panel:   Panel{EvaluatorIDs: []string{"e1", "e2", "e3"}, ProjectIDs: []string{"p1", "p2"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DefaultPanelRules.ValidatePanel(tt.panel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var ve *ValidationError
			if err != nil && !errors.As(err, &ve) {
				t.Fatalf("err %T is not a ValidationError", err)
			}
		})
	}
}

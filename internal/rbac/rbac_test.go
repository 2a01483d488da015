package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(map[string][]string{
		"admin":     {"*"},
		"evaluator": {"result:submit"},
		"panelist":  {"panel:*"},
	})
	tests := []struct {
		role, perm string
		want       bool
	}{
		{"admin", PermMaintenance, true},
		{"evaluator", "result:submit", true},
		{"evaluator", "settings:write", false},
		{"panelist", "panel:write", true},
		{"panelist", "project:write", false},
		{"stranger", "result:submit", false},
	}
	for _, tt := range tests {
		if got := c.Has(tt.role, tt.perm); got != tt.want {
			t.Errorf("Has(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	for _, p := range []string{PermResultSubmit, PermFinalize, PermProfile, PermAssignments} {
		if !c.Has(RoleEvaluator, p) {
			t.Errorf("evaluator lacks %s", p)
		}
	}
	for _, p := range []string{PermSettingsWrite, PermProjectWrite, PermResultsClear, PermScoresView, PermMaintenance} {
		if c.Has(RoleEvaluator, p) {
			t.Errorf("evaluator has admin permission %s", p)
		}
		if !c.Has(RoleAdmin, p) {
			t.Errorf("admin lacks %s", p)
		}
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermSettingsWrite)(ok)

	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin", RoleAdmin, http.StatusNoContent},
		{"evaluator", RoleEvaluator, http.StatusForbidden},
		{"anonymous", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/settings", nil)
			if tt.role != "" {
				req = req.WithContext(WithRole(context.Background(), tt.role))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusForbidden && !strings.Contains(rec.Body.String(), `"error":"Unauthorized"`) {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

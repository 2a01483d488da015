package rbac

const (
	RoleAdmin     = "admin"
	RoleEvaluator = "evaluator"
)

const (
	PermSettingsWrite  = "settings:write"
	PermProjectWrite   = "project:write"
	PermEvaluatorWrite = "evaluator:write"
	PermPanelWrite     = "panel:write"
	PermPanelView      = "panel:view"
	PermScoresView     = "scores:view"
	PermScoresExport   = "scores:export"
	PermResultsClear   = "results:clear"
	PermMaintenance    = "maintenance:reset"

	PermResultSubmit = "result:submit"
	PermFinalize     = "evaluation:finalize"
	PermProfile      = "profile:update"
	PermAssignments  = "assignment:view"
)

// RolePermissions: admins manage the event; evaluators act only on their own
// results and profile. Ownership itself is checked by the service.
var RolePermissions = map[string][]string{
	RoleEvaluator: {
		PermResultSubmit,
		PermFinalize,
		PermProfile,
		PermAssignments,
	},
	RoleAdmin: {
		"*",
	},
}

// Package gate provides a static role/module authorization table.
// Every protected operation in the application is gated by a named module
// (e.g. "reports", "users"); each role grants access to a fixed set of
// modules. The table is built once at process start and never mutated,
// so lookups are safe for concurrent use without locking.
//
// Unknown roles and unknown modules always resolve to "no access"
// (fail-closed). This package has no dependencies on domain models and
// can be reused across different web applications.
package gate

import "sort"

// Role is one of the closed set of user roles. Stored role strings from
// the database must be converted through ParseRole before use.
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleWorker        Role = "Worker"
	RolePartner       Role = "Partner"
)

// ParseRole converts a free-form stored role value into a Role.
// Returns false for anything outside the closed enumeration.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdministrator, RoleWorker, RolePartner:
		return Role(s), true
	}
	return "", false
}

// Module is a named permission scope gating one or more operations.
type Module string

const (
	ModuleDashboard           Module = "dashboard"
	ModuleProductionEntry     Module = "production_entry"
	ModuleReports             Module = "reports"
	ModuleUsers               Module = "users"
	ModuleProductiveCapacity  Module = "productive_capacity"
	ModuleReportConfiguration Module = "report_configuration"
	ModuleAlgaeTypes          Module = "algae_types"
	ModuleAdvancedStatistics  Module = "advanced_statistics"
	ModuleBasicReports        Module = "basic_reports"
)

// Table maps roles to the set of modules they may reach.
type Table map[Role]map[Module]bool

// NewTable builds a Table from role→module grants.
func NewTable(grants map[Role][]Module) Table {
	t := make(Table, len(grants))
	for role, modules := range grants {
		set := make(map[Module]bool, len(modules))
		for _, m := range modules {
			set[m] = true
		}
		t[role] = set
	}
	return t
}

// Has reports whether role may access module.
// Unknown role or module yields false.
func (t Table) Has(role Role, module Module) bool {
	return t[role][module]
}

// HasAny reports whether role may access at least one of modules.
func (t Table) HasAny(role Role, modules ...Module) bool {
	for _, m := range modules {
		if t.Has(role, m) {
			return true
		}
	}
	return false
}

// Modules returns the sorted capability set for role, used for
// conditional UI rendering. Empty slice for an unknown role.
func (t Table) Modules(role Role) []Module {
	set := t[role]
	out := make([]Module, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Default is the application's capability table.
// Administrator holds the superset; report_configuration is read-only for
// Partner (writes additionally require the Administrator role, enforced by
// the access gate's read/write variant).
var Default = NewTable(map[Role][]Module{
	RoleAdministrator: {
		ModuleDashboard,
		ModuleProductionEntry,
		ModuleReports,
		ModuleUsers,
		ModuleProductiveCapacity,
		ModuleReportConfiguration,
		ModuleAlgaeTypes,
		ModuleAdvancedStatistics,
		ModuleBasicReports,
	},
	RoleWorker: {
		ModuleDashboard,
		ModuleProductionEntry,
		ModuleReports,
		ModuleBasicReports,
	},
	RolePartner: {
		ModuleDashboard,
		ModuleReports,
		ModuleAdvancedStatistics,
		ModuleReportConfiguration,
	},
})

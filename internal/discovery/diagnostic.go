// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityInfo is a finding that needs no action.
	SeverityInfo Severity = "info"
	// SeverityWarning is a finding the user probably wants to fix.
	SeverityWarning Severity = "warning"

	// CodeModuleExcluded is reported for modules skipped by the exclude list.
	CodeModuleExcluded = "module_excluded"
	// CodeNoBundleTargets is reported for modules that will never be bundled.
	CodeNoBundleTargets = "module_without_targets"
	// CodeTypeCheckWithoutConfig is reported for modules whose scripts run
	// the type-checker but that have no tsconfig.json.
	CodeTypeCheckWithoutConfig = "typecheck_without_config"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic is a non-fatal discovery finding, returned rather than
	// printed so the CLI decides how to render it.
	Diagnostic struct {
		Severity Severity
		// Code is a machine-readable identifier such as "module_excluded".
		Code    string
		Message string
		// Path is the module directory involved.
		Path string
	}
)

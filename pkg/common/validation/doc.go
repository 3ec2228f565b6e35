// Package validation provides common validation utilities for configuration
// parameters loaded from files or the environment.
//
// Stream constructors never reject their options; they normalize bad values
// to defaults. Validation is applied only at the loading boundary, where a
// typo in a config file should be reported instead of silently ignored.
package validation

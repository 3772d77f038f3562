// SPDX-License-Identifier: MPL-2.0

// Package tsproject generates the type-check project descriptors: one
// rewritten tsconfig per module plus an aggregate that references every
// module whose scripts run the type-checker. The aggregate is what
// `tsc -b` watches.
package tsproject

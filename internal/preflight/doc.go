// Package preflight provides readiness checks for the filesystem paths and
// external tools that emoroute depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before materializing a run. If any check
//     fails, the run stops before touching the output tree.
//   - The CLI "emoroute status" command uses the individual check functions
//     to display readiness.
package preflight

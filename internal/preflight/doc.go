// Package preflight provides readiness checks for the filesystem paths and
// external programs the service depends on.
//
// These checks run in two contexts:
//   - The daemon reports them on GET /health so operators can see why real
//     parses fail while mock parses keep working.
//   - The CLI "dotsocr health --local" command runs them without a daemon.
//
// Checks never fail the process; they only describe what is wrong.
package preflight

// Package diagnostics runs the two operator-facing probe suites: Preflight
// (synchronous readiness checks for external tools, API keys, filesystem
// writability and catalog DB health) and Smoke (small functional tests
// compared against checked-in golden fixtures with a tolerant diff).
//
// Both suites run every probe/sub-test under its own context.WithTimeout so
// one hanging check can't block the rest of the run, and both persist
// their results: Preflight as a JSON report under the logs directory,
// Smoke as Markdown and JUnit files under exports/testruns/<ts>/.
package diagnostics

// Package preflight provides system validation and pre-flight checks
// to ensure cgrep can run successfully before starting operations.
//
// The package validates:
//   - Disk space availability (minimum 100MB)
//   - Memory (minimum 1GB, compared against a fixed 4GB estimate; actual
//     system memory is not read)
//   - Write permissions in project directory
//   - File descriptor limits (minimum 1024)
//   - Embedding model directory and free space for a model (non-critical)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, "/path/to/project")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight

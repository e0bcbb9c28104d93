// Package bootstrap prepares a Python project checkout for use.
//
// A bootstrap run is a fixed, strictly sequential pipeline:
//
//	DetectInterpreter -> EnsureEnvironment -> ResolvePath -> InstallDependencies -> ReportCompletion
//
// Every stage blocks until its subprocess returns. The first failing stage
// aborts the run and its error is returned to the caller; nothing is retried
// and nothing that was already installed is rolled back.
//
// Subprocesses go through the Runner interface and console output goes
// through the Reporter interface, so the pipeline can be exercised without a
// Python installation or a terminal.
package bootstrap

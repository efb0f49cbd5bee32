// Package process manages external daemon process lifecycles: starting with
// captured stdout/stderr, readiness polling, and graceful SIGTERM/SIGKILL stop.
package process

// Package torproc runs a single tor daemon: torrc generation, data-directory
// locking, process startup with control-port readiness, and the control
// session used to reconfigure, signal, and rotate identity on the daemon.
package torproc

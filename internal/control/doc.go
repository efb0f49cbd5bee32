// Package control implements a minimal client for the tor control-port
// protocol (AUTHENTICATE, GETCONF, SETCONF, SIGNAL), covering exactly the
// surface the pool needs to manage its daemons.
package control

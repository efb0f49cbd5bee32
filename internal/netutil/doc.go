// Package netutil provides local port allocation with cross-instance
// coordination, used to assign SOCKS and control ports to tor daemons.
package netutil

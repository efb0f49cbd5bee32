// Package sentinel provides a const-friendly error type for sentinel errors.
package sentinel

// Package fileutil provides small filesystem helpers shared across the module.
package fileutil

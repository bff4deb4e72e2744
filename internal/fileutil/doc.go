// Package fileutil provides durable, integrity-checked file writes.
package fileutil

// Package textutil normalizes client-supplied filenames and extensions.
package textutil

// Package textutil sanitizes user-supplied names for use as filenames.
package textutil

// Package version exposes build metadata for the hub binaries.
//
// Version, Commit and BuildTime may be injected via ldflags. Missing values are
// taken from the VCS stamp that the Go toolchain embeds in the binary.
package version

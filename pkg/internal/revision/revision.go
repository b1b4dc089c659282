// Package revision holds the VCS revision baked into the binary at build
// time via -ldflags. It is intentionally empty in source; CI sets it.
package revision

// Revision is set with -ldflags="-X .../revision.Revision=<git sha>".
var Revision string

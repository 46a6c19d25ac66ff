package api

import "runtime/debug"

// Version returns the module version embedded by the Go toolchain at
// build time (the VCS tag/commit for a release build, "(devel)" for a
// local build), read via runtime/debug rather than a baked-in constant
// so it never drifts from what was actually built.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if info.Main.Version != "" {
		return info.Main.Version
	}
	return "unknown"
}

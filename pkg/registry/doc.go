// Package registry loads package graphs from TOML registries and applies
// project and manifest files to them.
//
// # Registry layout
//
// A registry is a directory with a Registry.toml index:
//
//	name = "General"
//	[packages]
//	7876af07-990d-54b4-ab0e-23690620f79a = { name = "Example", path = "E/Example" }
//
// Each package directory holds:
//
//   - Package.toml: name and uuid.
//   - Versions.toml: one table per version; `yanked = true` hides it.
//   - Deps.toml, WeakDeps.toml: tables keyed by a version range, mapping
//     dependency names to UUIDs.
//   - Compat.toml, WeakCompat.toml: tables keyed by a version range,
//     mapping dependency names to a range or a list of ranges.
//
// Range keys use the compact syntax of [version.ParseRange] ("1.2-1",
// "0.5-*", "*"). A dependency without a compat entry accepts any version.
//
// # Projects and manifests
//
// A [Project] declares top-level requirements ([deps] names and UUIDs,
// [compat] specs in the syntax of [version.Parse]). A [Manifest] records a
// resolution; pinned entries become fixed versions.
package registry

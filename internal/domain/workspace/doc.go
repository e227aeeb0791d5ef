// Package workspace tracks estimated memory per workspace against soft
// caps.
//
// A budget never blocks tab creation or loading. Its only teeth are in
// eviction ordering: tabs from over-budget workspaces get reclaimed
// first. Charges are estimates, renderer-reported weight when a probe
// supplies one, flat per-state fallbacks otherwise.
//
// Caps come from an optional YAML or TOML file mapping workspace to a
// human-readable size; workspaces without an override use the
// configured default. Crossing a cap publishes a budget event once per
// crossing, not per charge.
package workspace

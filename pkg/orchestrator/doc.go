// Package orchestrator runs a live form instance: it mounts a configuration
// through the plugin pipeline, keeps the form values, recomputes field and
// button state when values change (only for the fields the dependency graph
// names), resolves option lists and routes button clicks and submissions.
//
// A Form implements plugin.Host, so plugins reach it through the
// plugin.Context handed to their hooks.
package orchestrator

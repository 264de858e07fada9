// Package app encapsulates the application's dependencies, configuration,
// and lifecycle: logger construction, pipeline configuration loading, and
// the batch conversion run.
package app

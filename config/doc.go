// Package config handles application configuration loading and validation.
//
// Configuration is loaded from a YAML file and validated using struct
// tags. The mjolnir section locates the graph tile store and the optional
// transit tile directory.
package config

package config

// HierarchyConfig locates the graph tile store.
type HierarchyConfig struct {
	TileDir string `yaml:"tile_dir" validate:"required"`
}

// MjolnirConfig contains the graph build stage configuration. TransitDir
// is optional; when it is empty or missing on disk the transit stage is a
// no-op. Concurrency of zero means hardware concurrency.
type MjolnirConfig struct {
	Hierarchy   HierarchyConfig `yaml:"hierarchy" validate:"required"`
	TransitDir  string          `yaml:"transit_dir" validate:"omitempty"`
	Concurrency uint32          `yaml:"concurrency" validate:"gte=0"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Mjolnir MjolnirConfig `yaml:"mjolnir" validate:"required"`
}

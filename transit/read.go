package transit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mta/transit-builder/graph"
)

// FilePath returns the on-disk path of the transit tile for a graph tile
// id: the graph file suffix with a .pbf extension.
func FilePath(transitDir string, id graph.GraphId) string {
	suffix := graph.FileSuffix(id)
	suffix = strings.TrimSuffix(suffix, ".gph") + ".pbf"
	return filepath.Join(transitDir, suffix)
}

// Read loads and decodes the transit tile for a graph tile id.
func Read(transitDir string, id graph.GraphId) (*Transit, error) {
	path := FilePath(transitDir, id)
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	t, err := Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write encodes a transit tile and writes it under transitDir; the
// counterpart of Read used when staging transit data.
func Write(transitDir string, id graph.GraphId, t *Transit) error {
	path := FilePath(transitDir, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, Encode(t), 0o644)
}

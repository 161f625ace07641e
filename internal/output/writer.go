package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/estimator"
)

// Artifact file names consumed by the renderer.
const (
	ContourFile  = "range_contour.json"
	MetadataFile = "range_metadata.json"
)

// Writer persists run artifacts to the renderer's output directory.
type Writer struct {
	dir    string
	logger zerolog.Logger
}

// NewWriter creates a writer targeting dir, creating it if needed.
func NewWriter(dir string, logger zerolog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// WriteRun writes the GeoJSON contour and metadata artifacts. Files are
// replaced atomically so the renderer never reads a half-written document.
func (w *Writer) WriteRun(result *estimator.RunResult) error {
	fc := BuildFeatureCollection(result)
	if err := w.writeJSON(ContourFile, fc, false); err != nil {
		return fmt.Errorf("writing contour: %w", err)
	}

	meta := BuildMetadata(result)
	if err := w.writeJSON(MetadataFile, meta, true); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	w.logger.Info().
		Str("dir", w.dir).
		Int("features", len(fc.Features)).
		Msg("run artifacts written")
	return nil
}

func (w *Writer) writeJSON(name string, v interface{}, indent bool) error {
	data, err := marshal(v, indent)
	if err != nil {
		return err
	}

	path := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func marshal(v interface{}, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

package nlu

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

const (
	modelFileName    = "model.json"
	metadataFileName = "metadata.json"
)

// Metadata describes a persisted model version.
type Metadata struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Examples  int       `json:"examples"`
}

// Manager owns classifier weight persistence and versioned metadata.
// The classifier itself only sees the loaded BayesModel; everything
// about file layout and versioning stays here.
type Manager struct {
	dir string

	meta Metadata
}

// NewManager creates a manager rooted at dir. The directory is created
// on first save.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Load reads the persisted model and metadata. A missing model is not
// an error: the returned model is simply untrained and the classifier
// falls back entirely to rules.
func (m *Manager) Load() (*BayesModel, error) {
	b, err := os.ReadFile(filepath.Join(m.dir, modelFileName))
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("dir", m.dir).Msg("no trained model on disk, starting untrained")
		return NewBayesModel(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	bm := NewBayesModel()
	if err := json.Unmarshal(b, bm); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	bm.rebuildVocab()

	mb, err := os.ReadFile(filepath.Join(m.dir, metadataFileName))
	if err == nil {
		if err := json.Unmarshal(mb, &m.meta); err != nil {
			return nil, fmt.Errorf("decode model metadata: %w", err)
		}
	}

	log.Info().
		Str("version", m.meta.Version).
		Int("docs", bm.TotalDocs).
		Msg("loaded trained model")
	return bm, nil
}

// Save persists the model and writes fresh metadata with a new
// version id. Returns the new metadata.
func (m *Manager) Save(bm *BayesModel, examples int) (Metadata, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Metadata{}, fmt.Errorf("create model dir: %w", err)
	}

	b, err := json.MarshalIndent(bm, "", "  ")
	if err != nil {
		return Metadata{}, fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, modelFileName), b, 0o644); err != nil {
		return Metadata{}, fmt.Errorf("write model: %w", err)
	}

	meta := Metadata{
		Version:   ulid.Make().String(),
		TrainedAt: time.Now().UTC(),
		Examples:  examples,
	}
	mb, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Metadata{}, fmt.Errorf("encode model metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, metadataFileName), mb, 0o644); err != nil {
		return Metadata{}, fmt.Errorf("write model metadata: %w", err)
	}

	m.meta = meta
	log.Info().Str("version", meta.Version).Int("examples", examples).Msg("saved model")
	return meta, nil
}

// CurrentVersion returns the loaded model version, or "" when no
// trained model exists.
func (m *Manager) CurrentVersion() string {
	return m.meta.Version
}

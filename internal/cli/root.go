// Package cli wires the command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"packrat/internal/engine"
	"packrat/internal/logging"
	"packrat/internal/nlu"
	"packrat/internal/store"
)

var (
	dbPath    string
	modelDir  string
	vocabPath string
	logLevel  string
	pretty    bool
)

// RootCmd is the top-level packrat command.
var RootCmd = &cobra.Command{
	Use:   "packrat",
	Short: "Conversational personal inventory assistant",
	Long: `Packrat answers natural-language questions about your belongings
and logs new acquisitions through a short guided dialogue.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logLevel, pretty)
	},
	SilenceUsage: true,
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".packrat")

	RootCmd.PersistentFlags().StringVar(&dbPath, "db", filepath.Join(dataDir, "packrat.db"), "path to the inventory database")
	RootCmd.PersistentFlags().StringVar(&modelDir, "model-dir", filepath.Join(dataDir, "models"), "directory holding trained classifier models")
	RootCmd.PersistentFlags().StringVar(&vocabPath, "vocab", "", "custom extraction lexicon (YAML); empty uses the built-in one")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "human-readable log output")
}

// openStore opens the configured SQLite store.
func openStore() (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// buildEngine assembles the full pipeline: store, persisted model,
// classifier and engine.
func buildEngine() (*engine.Engine, *store.SQLiteStore, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	mgr := nlu.NewManager(modelDir)
	bm, err := mgr.Load()
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	var vocab *nlu.Vocabulary
	if vocabPath != "" {
		vocab, err = nlu.LoadVocabulary(vocabPath)
		if err != nil {
			s.Close()
			return nil, nil, err
		}
	}

	e := engine.New(engine.Config{
		Store:        s,
		Classifier:   nlu.NewClassifier(bm),
		Extractor:    nlu.NewExtractor(vocab, nil),
		ModelVersion: mgr.CurrentVersion(),
	})
	return e, s, nil
}

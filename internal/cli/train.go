package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"packrat/internal/nlu"
)

var trainCmd = &cobra.Command{
	Use:   "train <examples.yaml>",
	Short: "Train the intent classifier from labeled examples",
	Long: `Reads a YAML file of labeled utterances and trains the statistical
intent model, saving it under the model directory with a fresh version:

    - text: where is my drill
      intent: search
    - text: i bought a new blender
      intent: log_acquisition`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read examples: %w", err)
		}

		var examples []nlu.Example
		if err := yaml.Unmarshal(b, &examples); err != nil {
			return fmt.Errorf("parse examples: %w", err)
		}
		if len(examples) == 0 {
			return fmt.Errorf("no examples in %s", args[0])
		}

		mgr := nlu.NewManager(modelDir)
		bm, err := mgr.Load()
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}

		bm.Train(examples)
		meta, err := mgr.Save(bm, len(examples))
		if err != nil {
			return fmt.Errorf("save model: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "trained on %d examples, model version %s\n",
			len(examples), meta.Version)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(trainCmd)
}

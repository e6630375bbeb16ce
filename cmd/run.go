package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/isajjim/estimator/internal/models"
)

func newRunCmd() *cobra.Command {
	var answersPath string
	var sets []string
	var output string

	cmd := &cobra.Command{
		Use:   "run [flags] <image>...",
		Short: "Upload photos and run a full estimate",
		Long: `Uploads the given photos (local paths or http(s) URLs), creates an estimate,
submits the property details from the answers file and waits for the analysis.

Quantities can be corrected with --set before the inventory is printed and
optionally exported.`,
		Example: `  # Estimate two rooms
  estimator run --answers answers.yaml bedroom.jpg kitchen.jpg

  # Correct two quantities and export the result
  estimator run --answers answers.yaml --set 3=2 --set 7=0 --output estimate.parquet room.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adjustments, err := parseAdjustments(sets)
			if err != nil {
				return err
			}
			answers, err := loadAnswers(answersPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ctrl, loader := newController(configFrom(cmd))
			defer ctrl.Reset()

			picked, err := loader.LoadAll(ctx, args)
			if err != nil {
				return err
			}
			estimateID, err := ctrl.Start(ctx, picked)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Estimate %d created, waiting for the analysis...\n", estimateID)

			if _, err := ctrl.SubmitDetails(ctx, answers); err != nil {
				return userError(err)
			}
			if err := applyAdjustments(ctx, ctrl, adjustments); err != nil {
				return err
			}

			state := ctrl.Snapshot()
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(state))
			return exportIfRequested(output, state)
		},
	}

	cmd.Flags().StringVarP(&answersPath, "answers", "a", "answers.yaml", "YAML file with the property-detail answers")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a furniture quantity as <furnitureId>=<quantity> (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export the inventory (.yaml, .json or .parquet)")

	return cmd
}

func loadAnswers(path string) (models.DetailAnswers, error) {
	var answers models.DetailAnswers
	data, err := os.ReadFile(path)
	if err != nil {
		return answers, fmt.Errorf("failed to read answers file: %w", err)
	}
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return answers, fmt.Errorf("failed to parse answers file: %w", err)
	}
	slog.Debug("Loaded answers", "path", path, "missing", answers.Missing())
	return answers, nil
}

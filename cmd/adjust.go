package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/isajjim/estimator/internal/export"
	"github.com/isajjim/estimator/internal/session"
)

type adjustment struct {
	furnitureID int64
	quantity    int
}

func newAdjustCmd() *cobra.Command {
	var sets []string
	var output string

	cmd := &cobra.Command{
		Use:   "adjust <estimateId>",
		Short: "Review and correct an analysed estimate",
		Long: `Loads an estimate whose analysis already finished, applies the requested
quantity corrections and prints the recomputed inventory.`,
		Example: `  # Show an estimate
  estimator adjust 42

  # Remove one item and double another
  estimator adjust 42 --set 5=0 --set 9=2 --output estimate.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			estimateID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || estimateID <= 0 {
				return fmt.Errorf("invalid estimate id %q", args[0])
			}
			adjustments, err := parseAdjustments(sets)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ctrl, _ := newController(configFrom(cmd))
			defer ctrl.Reset()

			if _, err := ctrl.Resume(ctx, estimateID); err != nil {
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

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a furniture quantity as <furnitureId>=<quantity> (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export the inventory (.yaml, .json or .parquet)")

	return cmd
}

func parseAdjustments(sets []string) ([]adjustment, error) {
	adjustments := make([]adjustment, 0, len(sets))
	for _, s := range sets {
		idPart, qtyPart, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: want <furnitureId>=<quantity>", s)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid furniture id in --set %q: %w", s, err)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("invalid quantity in --set %q: want a non-negative integer", s)
		}
		adjustments = append(adjustments, adjustment{furnitureID: id, quantity: qty})
	}
	return adjustments, nil
}

// applyAdjustments sends every correction and reports all that failed.
func applyAdjustments(ctx context.Context, ctrl *session.Controller, adjustments []adjustment) error {
	var errs []error
	for _, a := range adjustments {
		if err := ctrl.Adjust(ctx, a.furnitureID, a.quantity); err != nil {
			errs = append(errs, userError(err))
			continue
		}
		slog.Debug("Applied adjustment", "furniture_id", a.furnitureID, "quantity", a.quantity)
	}
	return errors.Join(errs...)
}

func exportIfRequested(path string, state session.State) error {
	if path == "" {
		return nil
	}
	format, err := export.FormatFromPath(path)
	if err != nil {
		return err
	}
	return export.Write(path, format, state)
}

// userError puts the session's user-facing message in front of the cause.
func userError(err error) error {
	var failure *session.Failure
	if errors.As(err, &failure) && failure.Kind != session.KindValidation {
		return fmt.Errorf("%s (%w)", failure.UserMessage(), err)
	}
	return err
}

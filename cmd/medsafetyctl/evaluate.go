package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pharmassist-medsafety/internal/domain"
)

var evaluateViews = []string{"recommendations", "summary", "conflicts", "profile", "completion"}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		view              string
		productID         int
		includeConflicted bool
		maxResults        int
	)

	cmd := &cobra.Command{
		Use:   "evaluate <user-id>",
		Short: "Run the engine for one user and print the JSON response",
		Long: `evaluate runs one facade operation for a stored user and prints the
response the HTTP API would return. --product checks a single product
instead of the selected view.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			if maxResults < 0 || maxResults > 100 {
				return fmt.Errorf("--max-results must be between 1 and 100")
			}

			b, err := opts.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := cmd.Context()
			var payload interface{}
			switch {
			case productID > 0:
				payload, err = b.safety.CheckProductSafety(ctx, userID, productID)
			case view == "recommendations":
				var out *domain.Outcome[domain.RecommendationResponse]
				if out, err = b.safety.GetRecommendations(ctx, userID, includeConflicted, maxResults); err == nil {
					payload = out.Payload()
				}
			case view == "summary":
				var out *domain.Outcome[domain.SafetySummaryResponse]
				if out, err = b.safety.GetSafetySummary(ctx, userID); err == nil {
					payload = out.Payload()
				}
			case view == "conflicts":
				var out *domain.Outcome[domain.ConflictingMedicationsResponse]
				if out, err = b.safety.GetConflictingMedications(ctx, userID, maxResults); err == nil {
					payload = out.Payload()
				}
			case view == "profile":
				payload, err = b.safety.GetMedicalProfile(ctx, userID)
			case view == "completion":
				payload, err = b.safety.CheckProfileCompletion(ctx, userID)
			default:
				return fmt.Errorf("unknown view %q, expected one of %v", view, evaluateViews)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), payload)
		},
	}

	cmd.Flags().StringVar(&view, "view", "recommendations", fmt.Sprintf("operation to run: %v", evaluateViews))
	cmd.Flags().IntVar(&productID, "product", 0, "check a single product id")
	cmd.Flags().BoolVar(&includeConflicted, "include-conflicted", false, "include conflicting products in recommendations")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum number of results (default: engine default)")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

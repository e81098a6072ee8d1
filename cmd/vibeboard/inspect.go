package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattyatplay-coder/vibeboard/pkg/provider"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List usable generation providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			usable := a.dispatcher.Registry().ListUsable()
			if len(usable) == 0 {
				cmd.Println("no usable providers; start ComfyUI or set a provider API key")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tCATEGORY\tMEDIA\tLORA\tIMAGE $\tVIDEO $")
			for _, ub := range usable {
				d := ub.Descriptor
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.Kind, d.Category, mediaColumn(d), yesNo(d.SupportsStyleAdapters),
					costColumn(d.CostPerImage), costColumn(d.CostPerVideo))
			}
			return w.Flush()
		},
	}
}

func newModelsCmd() *cobra.Command {
	var media string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models advertised by usable providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			kind := provider.MediaKind(media)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL")
			for _, ub := range a.dispatcher.Registry().ListCapable(kind) {
				for _, m := range ub.Descriptor.ModelsFor(kind) {
					fmt.Fprintf(w, "%s\t%s\n", ub.Descriptor.Kind, m)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&media, "media", "image", "media kind: image or video")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <generation-id>",
		Short: "Check the status of an in-flight generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.dispatcher.CheckStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("%s: %s", result.ID, result.Status)
			if result.Provider != "" {
				cmd.Printf(" (%s)", result.Provider)
			}
			cmd.Println()
			for _, out := range result.Outputs {
				cmd.Println("  " + out)
			}
			if result.Error != "" {
				cmd.Println("  error: " + result.Error)
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.store.ListRecent(limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROVIDER\tMEDIA\tSTATUS\tCOST\tPROMPT")
			for _, rec := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.4f\t%s\n",
					rec.ID, rec.Provider, rec.MediaKind, rec.Status, rec.Cost,
					truncatePrompt(rec.Prompt, 40))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	return cmd
}

func newCostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Inspect spend and budgets",
	}
	cmd.AddCommand(newCostSummaryCmd(), newCostEstimateCmd())
	return cmd
}

func newCostSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show spend against budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			status := a.tracker.CheckBudget()
			cmd.Printf("session: $%.4f / $%.2f\n", status.SessionCost, status.SessionBudget)
			cmd.Printf("daily:   $%.4f / $%.2f\n", status.DailyCost, status.DailyBudget)
			cmd.Printf("monthly: $%.4f / $%.2f\n", status.MonthlyCost, status.MonthlyBudget)
			if warning := status.GetWarningMessage(); warning != "" {
				cmd.Println(strings.TrimRight(warning, "\n"))
			}
			return nil
		},
	}
}

func newCostEstimateCmd() *cobra.Command {
	var media string
	var count int
	cmd := &cobra.Command{
		Use:   "estimate <provider>",
		Short: "Estimate the cost of a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := provider.Kind(args[0])
			if _, ok := provider.DescriptorFor(kind); !ok {
				return fmt.Errorf("unknown provider: %s", args[0])
			}
			estimate := provider.EstimateCost(kind, provider.MediaKind(media), count)
			if estimate >= provider.CostUnsupported {
				return fmt.Errorf("%s does not support %s generation", kind, media)
			}
			cmd.Printf("$%.4f for %d %s output(s) on %s\n", estimate, count, media, kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&media, "media", "image", "media kind: image or video")
	cmd.Flags().IntVar(&count, "count", 1, "number of outputs")
	return cmd
}

// truncatePrompt shortens a prompt to max runes, never splitting a
// multi-byte character.
func truncatePrompt(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func mediaColumn(d provider.BackendDescriptor) string {
	switch {
	case d.SupportsImage && d.SupportsVideo:
		return "image+video"
	case d.SupportsVideo:
		return "video"
	default:
		return "image"
	}
}

func costColumn(cost float64) string {
	if cost >= provider.CostUnsupported {
		return "-"
	}
	if cost == 0 {
		return "free"
	}
	return fmt.Sprintf("%.4f", cost)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

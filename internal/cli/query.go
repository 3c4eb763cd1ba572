package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"packrat/internal/engine"
	"packrat/internal/model"
)

var (
	querySession string
	queryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Ask a question about your inventory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, s, err := buildEngine()
		if err != nil {
			return err
		}
		defer s.Close()

		resp, err := e.ProcessQuery(cmd.Context(), querySession, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if queryJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
		}
		printResponse(cmd, resp)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&querySession, "session", "default", "session id for follow-up context")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "emit the raw response as JSON")
	RootCmd.AddCommand(queryCmd)
}

func printResponse(cmd *cobra.Command, resp *engine.Response) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Message)

	if resp.Result == nil {
		return
	}
	for _, it := range resp.Result.Items {
		fmt.Fprintf(out, "  - %s%s\n", it.Name, itemDetails(it))
	}
	for _, r := range resp.Result.Repairs {
		fmt.Fprintf(out, "  - %s: %s (%s)\n", r.ItemName, r.Description, r.Status)
	}
}

func itemDetails(it model.Item) string {
	var bits []string
	if it.Location != "" {
		bits = append(bits, "in the "+it.Location)
	}
	if it.Price > 0 {
		bits = append(bits, fmt.Sprintf("$%.2f", it.Price))
	}
	if it.PurchaseDate != "" {
		bits = append(bits, it.PurchaseDate)
	}
	if len(bits) == 0 {
		return ""
	}
	return " (" + strings.Join(bits, ", ") + ")"
}

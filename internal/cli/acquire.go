package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"packrat/internal/engine"
)

var acquireSession string

var acquireCmd = &cobra.Command{
	Use:   "acquire <statement>",
	Short: "Log a new acquisition through a short dialogue",
	Long: `Opens an acquisition dialogue from a statement like
"I bought a blender for $45 at Walmart". Whatever the statement
already says is kept; packrat only asks for what is missing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, s, err := buildEngine()
		if err != nil {
			return err
		}
		defer s.Close()

		resp, err := e.StartAcquisition(cmd.Context(), acquireSession, strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			if done := reportTurn(cmd, resp); done {
				return nil
			}

			fmt.Fprintf(out, "%s\n> ", resp.Question)
			if !scanner.Scan() {
				fmt.Fprintln(out, "\nDialogue left open; your answers so far are kept.")
				return scanner.Err()
			}

			resp, err = e.ContinueAcquisition(cmd.Context(), resp.Token, scanner.Text())
			if err != nil {
				return err
			}
		}
	},
}

func init() {
	acquireCmd.Flags().StringVar(&acquireSession, "session", "default", "session id")
	RootCmd.AddCommand(acquireCmd)
}

// reportTurn prints a terminal response and reports whether the
// dialogue is over.
func reportTurn(cmd *cobra.Command, resp *engine.Response) bool {
	out := cmd.OutOrStdout()
	switch {
	case resp.Done:
		fmt.Fprintln(out, resp.Message)
		return true
	case resp.Cancelled:
		fmt.Fprintln(out, resp.Message)
		return true
	}
	return false
}

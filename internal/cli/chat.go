package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"packrat/internal/engine"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation with your inventory",
	Long: `Starts a REPL. Ask questions, log acquisitions, answer follow-up
questions; an empty line or "exit" ends the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, s, err := buildEngine()
		if err != nil {
			return err
		}
		defer s.Close()

		sessionID := uuid.NewString()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "packrat is listening. Ask away.")

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" || line == "exit" || line == "bye" {
				fmt.Fprintln(out, "Bye.")
				return nil
			}

			resp, err := e.ProcessQuery(cmd.Context(), sessionID, line)
			if err != nil {
				if errors.Is(err, engine.ErrEmptyQuery) {
					continue
				}
				fmt.Fprintf(out, "sorry, that failed: %v\n", err)
				continue
			}
			printResponse(cmd, resp)
		}
	},
}

func init() {
	RootCmd.AddCommand(chatCmd)
}

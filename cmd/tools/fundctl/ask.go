package main

import (
	"fmt"
	"io"
	"strings"

	"mf-search-workers/internal/models"
	fundsearch "mf-search-workers/internal/workers/fund-search"
	routequery "mf-search-workers/internal/workers/fund-search/route-query"

	"github.com/spf13/cobra"
)

const genericFailure = "Sorry, something went wrong while answering your question. Please try again."

var askVerbose bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Classify and answer one question",
	Long: `Runs one question through the intent classifier and the matching search
handler, printing the detected mode and then the answer.

Examples:
  fundctl ask "Is Parag Parikh Flexi Cap a good fund?"
  fundctl ask "Top large cap funds"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "print the error instead of the generic failure message")
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := fundsearch.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	handlers, err := fundsearch.NewHandlers(cfg, svc, log)
	if err != nil {
		return err
	}

	out, err := handlers.Router.Route(cmd.Context(), "", strings.Join(args, " "))
	return printAnswer(cmd.OutOrStdout(), out, err, askVerbose)
}

// printAnswer shows the detected mode before the answer. Failures print one
// generic line; the error is still returned for the exit code.
func printAnswer(w io.Writer, out *routequery.Output, err error, verbose bool) error {
	if err != nil {
		if verbose {
			fmt.Fprintf(w, "%s\n%v\n", genericFailure, err)
		} else {
			fmt.Fprintln(w, genericFailure)
		}
		return err
	}

	fmt.Fprintf(w, "Detected: %s search\n\n", strings.ToUpper(string(out.Mode)))
	fmt.Fprintln(w, out.Answer)
	if len(out.MissingFunds) > 0 {
		fmt.Fprintf(w, "\nNot found: %s\n", strings.Join(out.MissingFunds, ", "))
	}
	if out.Mode == models.ModeFiltered && len(out.Funds) > 0 {
		fmt.Fprintln(w, "\nMatched funds:")
		for i, f := range out.Funds {
			fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, f.Name, f.PromptFields()["1yr_return"])
		}
	}
	return nil
}

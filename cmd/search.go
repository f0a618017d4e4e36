package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/pkg/exa"
)

var searchNumResults int

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search for companies via Exa",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := initExa()
		if client == nil {
			return eris.New("exa API key is required (PROSPECT_EXA_KEY)")
		}

		query := strings.Join(args, " ")
		results, err := client.SearchCompanies(cmd.Context(), query, searchNumResults)
		if err != nil {
			return eris.Wrap(err, "search companies")
		}
		if results == nil {
			results = []exa.Result{}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string][]exa.Result{"results": results})
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchNumResults, "num-results", 10, "max number of companies to return")
	rootCmd.AddCommand(searchCmd)
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	queryuc "github.com/kailas-cloud/searchgate/internal/usecase/query"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var indent bool

	cmd := &cobra.Command{
		Use:   "query [file|-]",
		Short: "Send one query document to the search backend and print the rows",
		Long: "Reads a JSON query document from the given file (or stdin when omitted or \"-\"),\n" +
			"runs it against the configured index and prints the matched rows as a JSON array.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readQueryArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := bootstrap(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := queryuc.New(a.store, a.cfg.OpenSearch.Index).Run(cmd.Context(), q)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if indent {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(rows)
		},
	}
	cmd.Flags().BoolVar(&indent, "indent", false, "pretty-print the JSON output")
	return cmd
}

func readQueryArg(stdin io.Reader, args []string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("read query: %w", err)
	}
	if !json.Valid(data) {
		return nil, errors.New("query is not valid JSON")
	}
	return json.RawMessage(data), nil
}

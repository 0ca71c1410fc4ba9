// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/psaw/internal/dump"
	"github.com/pdiddy/psaw/internal/export"
	"github.com/pdiddy/psaw/internal/pushshift"
	"github.com/pdiddy/psaw/pkg/types"
)

const defaultLimit = 20

// newSearchCmd builds the command that searches records of kind.
func newSearchCmd(kind types.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind) + " [flags]",
		Short: fmt.Sprintf("Search %s and save them to disk", kind),
		Long: fmt.Sprintf(`Search the archive for %s matching the query, subreddit, and author
filters, then save them. Pass exactly one of --output (all records in one
file, "-" for stdout) or --output-template (one file per record, with
{field} placeholders such as "{id}.json").

Comma-separated lists are accepted by --query, --subreddits, --authors,
and --fields. Without --fields, every field of the first result is written.`, kind),
		Example: fmt.Sprintf(`  psaw %[1]s -q golang -s programming -l 100 -o results.csv
  psaw %[1]s -a spez --format json --output-template "{id}.json" --prettify
  psaw %[1]s -s golang --dump RC_2023-01.zst -o golang.db --format sqlite`, kind),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runSearch(cmd, kind)
			// Only usage errors warrant printing the flag summary.
			cmd.SilenceUsage = !errors.Is(err, export.ErrUsage)
			return err
		},
	}

	f := cmd.Flags()
	f.StringP("query", "q", "", "search term(s)")
	f.StringP("subreddits", "s", "", "restrict search to subreddit(s)")
	f.StringP("authors", "a", "", "restrict search to author(s)")
	f.IntP("limit", "l", defaultLimit, "maximum number of items to retrieve")
	f.StringP("output", "o", "", "output file for saving all results in a single file")
	f.String("output-template", "", "output file name template for saving each result in a separate file")
	f.String("format", string(types.FormatCSV), "output format: csv, json, yaml, or sqlite")
	f.StringP("fields", "f", "", "fields to retrieve (must be in quotes or have no spaces), defaults to all")
	f.Bool("prettify", false, "make output slightly less ugly (for json only)")
	f.Bool("dry-run", false, "print potential names of output files, but don't actually write any files")
	f.String("proxy", "", "proxy address for API requests (host:port or URL)")
	f.String("base-url", "", "archive API root (default "+pushshift.DefaultBaseURL+")")
	f.String("dump", "", "search a local Pushshift dump file (.zst or NDJSON) instead of the API")

	return cmd
}

func init() {
	rootCmd.AddCommand(newSearchCmd(types.Comments))
	rootCmd.AddCommand(newSearchCmd(types.Submissions))
}

// optionalString returns nil for flags the user did not set.
func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func runSearch(cmd *cobra.Command, kind types.Kind) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	template, _ := cmd.Flags().GetString("output-template")
	prettify, _ := cmd.Flags().GetBool("prettify")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dumpPath, _ := cmd.Flags().GetString("dump")

	opts := export.Options{
		Kind:           kind,
		Query:          optionalString(cmd, "query"),
		Subreddits:     optionalString(cmd, "subreddits"),
		Authors:        optionalString(cmd, "authors"),
		Fields:         optionalString(cmd, "fields"),
		Limit:          viper.GetInt("limit"),
		Output:         output,
		OutputTemplate: template,
		Format:         viper.GetString("format"),
		Prettify:       prettify,
		DryRun:         dryRun,
		Progress:       cmd.ErrOrStderr(),
	}
	if _, err := opts.Validate(); err != nil {
		return err
	}

	var searcher export.Searcher
	if dumpPath != "" {
		if err := dump.Detect(dumpPath); err != nil {
			return fmt.Errorf("%w: %v", export.ErrUsage, err)
		}
		searcher = &dump.Source{Path: dumpPath}
	} else {
		client, err := pushshift.New(apiConfig())
		if err != nil {
			return fmt.Errorf("%w: %v", export.ErrUsage, err)
		}
		searcher = client
	}

	_, err := export.Run(cmd.Context(), opts, searcher, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

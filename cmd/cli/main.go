package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	domainReport "cprfeed/domain/report"
	"cprfeed/internal"
	"cprfeed/internal/config"
	"cprfeed/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "cprcli",
		Short:         "Inspect the latest Community Profile Report",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level (ERROR, WARN, INFO, DEBUG, TRACE)")

	build := func() (*container.Container, error) {
		_ = godotenv.Load()
		appConfig, err := config.Load()
		if err != nil {
			return nil, err
		}
		return container.New(appConfig, internal.NewLogger(internal.ParseLogLevel(logLevel)))
	}

	rootCmd.AddCommand(
		newAttachmentsCmd(build),
		newLatestURLCmd(build),
		newCountyDataCmd(build),
	)
	return rootCmd
}

type containerFactory func() (*container.Container, error)

func newAttachmentsCmd(build containerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "attachments",
		Short: "List the spreadsheet attachments of the newest archive entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build()
			if err != nil {
				return err
			}
			links, err := c.Reports.DownloadLinks(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), links)
		},
	}
}

func newLatestURLCmd(build containerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "latest-url",
		Short: "Print the download URL of the newest report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build()
			if err != nil {
				return err
			}
			url, err := c.Reports.LatestURL(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func newCountyDataCmd(build containerFactory) *cobra.Command {
	var fips string
	var fields []string

	cmd := &cobra.Command{
		Use:   "county-data",
		Short: "Extract fields for the given counties from the newest report",
		Long: `Extract fields for the given counties from the newest report.

Example: cprcli county-data --fips 8031,8005 --field name=A --field cases=D`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selectors, err := domainReport.ParseSelectorSet(fips)
			if err != nil {
				return err
			}
			mapping, err := parseFieldFlags(fields)
			if err != nil {
				return err
			}

			c, err := build()
			if err != nil {
				return err
			}
			result, err := c.Reports.CountyData(cmd.Context(), selectors, mapping)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&fips, "fips", "", "Comma delimited list of county FIPS codes")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Output field as name=COLUMN (repeatable, replaces the default fields)")
	_ = cmd.MarkFlagRequired("fips")

	return cmd
}

// parseFieldFlags turns name=COLUMN flags into a mapping, or the default mapping when none are given
func parseFieldFlags(fields []string) (domainReport.FieldMapping, error) {
	if len(fields) == 0 {
		return domainReport.DefaultFieldMapping(), nil
	}
	pairs := make([]domainReport.FieldColumn, 0, len(fields))
	for _, f := range fields {
		name, column, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --field %q, expected name=COLUMN", f)
		}
		pairs = append(pairs, domainReport.FieldColumn{Field: name, Column: column})
	}
	return domainReport.NewFieldMapping(pairs)
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

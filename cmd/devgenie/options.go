package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/validate"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List analysis modes, code languages and output languages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printOptions(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}

func printOptions(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "MODES")
	for _, m := range domain.Modes {
		fmt.Fprintf(tw, "  %s\t%s\n", m, m.Label())
	}
	fmt.Fprintln(tw, "\nCODE LANGUAGES")
	for _, l := range domain.CodeLanguages {
		fmt.Fprintf(tw, "  %s\t%s\n", l, l.Label())
	}
	fmt.Fprintln(tw, "\nOUTPUT LANGUAGES")
	for _, o := range domain.OutputLanguages {
		fmt.Fprintf(tw, "  %s\t%s\n", o, o.Label())
	}
	fmt.Fprintf(tw, "\nUPLOAD EXTENSIONS\n  %s\n", strings.Join(validate.AllowedExtensions, " "))
	return tw.Flush()
}

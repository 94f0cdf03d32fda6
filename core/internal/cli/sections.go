package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"livecollect/core/internal/report"
)

func NewSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections <report.txt>",
		Short: "List the sections of a collected report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open report")
			}
			defer f.Close()

			doc, err := report.Parse(f)
			if err != nil {
				return err
			}
			if len(doc.Sections) == 0 {
				return errors.Errorf("%s: no sections found", args[0])
			}

			out := cmd.OutOrStdout()
			for _, l := range doc.Header {
				fmt.Fprintln(out, l)
			}
			fmt.Fprintln(out)
			for i, s := range doc.Sections {
				lines := 0
				if s.Body != "" {
					lines = strings.Count(s.Body, "\n") + 1
				}
				fmt.Fprintf(out, "%d. %s (%d lines)\n", i+1, s.Title, lines)
			}
			return nil
		},
	}
}

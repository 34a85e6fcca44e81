package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTermCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term [flags] <term>...",
		Short: "Print document and collection frequency of terms",
		Long: `Term prints the document frequency and collection term frequency of each
argument. Terms are looked up as given; pass --analyze to run them through the
index analyzer first, so that "Running" is looked up as its stem.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runTerm,
	}
	cmd.Flags().StringSlice("fields", nil, "fields to count in (default: all indexed text fields)")
	cmd.Flags().Bool("analyze", false, "analyze terms with the index analyzer before lookup")
	return cmd
}

func runTerm(cmd *cobra.Command, args []string) error {
	fields, _ := cmd.Flags().GetStringSlice("fields")
	analyze, _ := cmd.Flags().GetBool("analyze")

	e, sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	defer sess.Close()

	var terms []string
	for _, arg := range args {
		if !analyze {
			terms = append(terms, arg)
			continue
		}
		terms = append(terms, strings.Fields(sess.Engine.Stem(arg))...)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-24s %10s %10s\n", "term", "df", "tf")
	for _, term := range terms {
		df, err := sess.Stats.DocumentFrequency(term, fields...)
		if err != nil {
			return err
		}
		tf, err := sess.Stats.TermFrequency(term, fields...)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-24s %10d %10d\n", term, df, tf)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc [flags] <docno>",
		Short: "Inspect one document",
		Long: `Doc prints a document's stored length and metadata as JSON. With --vector
it prints the document's term vector, one "term weight" pair per line in
order of first occurrence. With --text it prints the analyzed text of the
document, or of one field with --field.`,
		Example: `  kensaku doc LA010189-0001
  kensaku doc --vector --top 20 LA010189-0001
  kensaku doc --text --field headline LA010189-0001`,
		Args: cobra.ExactArgs(1),
		RunE: runDoc,
	}
	f := cmd.Flags()
	f.Bool("vector", false, "print the document term vector")
	f.Int("top", 0, "with --vector, keep only the n heaviest terms")
	f.Bool("text", false, "print the analyzed document text")
	f.String("field", "", "with --text, print only this field")
	cmd.MarkFlagsMutuallyExclusive("vector", "text")
	return cmd
}

func runDoc(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	showVector, _ := f.GetBool("vector")
	top, _ := f.GetInt("top")
	showText, _ := f.GetBool("text")
	field, _ := f.GetString("field")

	e, sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	defer sess.Close()

	docno := args[0]
	out := cmd.OutOrStdout()
	switch {
	case showText:
		id, err := sess.Engine.DocID(docno)
		if err != nil {
			return err
		}
		var text string
		if field != "" {
			text, err = sess.Vectors.Text(id, field)
		} else {
			text, err = sess.Vectors.FullText(id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
	case showVector:
		hit, err := sess.Engine.Hit(docno, sess.Stopper)
		if err != nil {
			return err
		}
		fv := hit.Vector.Clone()
		fv.Top(top)
		for _, term := range fv.Features() {
			fmt.Fprintf(out, "%s %s\n", term, strconv.FormatFloat(fv.Weight(term), 'f', -1, 64))
		}
	default:
		hit, err := sess.Engine.Hit(docno, sess.Stopper)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hit)
	}
	return nil
}

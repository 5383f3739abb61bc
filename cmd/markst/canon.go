package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fractalqb/markst"
)

func init() {
	canonCmd.RunE = canonFiles
	canonCmd.Flags().IntVarP(&canonCmd.width, "width", "w", canonCmd.width,
		"Set print width, 0 for unlimited")
	rootCmd.AddCommand(&canonCmd.Command)
}

var canonCmd = struct {
	cobra.Command
	width int
}{
	Command: cobra.Command{
		Use:   "canon [file...]",
		Short: "Print the canonical form of markup documents",
		Long: `Print the canonical form of markup documents. Without files the document
is read from stdin. With --width the canonical form is printed with line
breaks as it is used in diffs.`,
	},
}

func canonFiles(cmd *cobra.Command, files []string) error {
	opts, err := markupOptions()
	if err != nil {
		return err
	}
	opts.PrintWidth = canonCmd.width
	if len(files) == 0 {
		doc, err := readStdin()
		if err != nil {
			return err
		}
		return printCanonical(cmd.OutOrStdout(), doc, opts)
	}
	for _, f := range files {
		doc, err := markst.ReadDocument(f)
		if err != nil {
			return err
		}
		if err = printCanonical(cmd.OutOrStdout(), doc, opts); err != nil {
			return err
		}
	}
	return nil
}

func printCanonical(w io.Writer, doc markst.Document, opts markst.Options) error {
	c, err := markst.Canonicalize(doc, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, c.Text)
	return err
}

func readStdin() (markst.Document, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return markst.Document{}, err
	}
	return markst.Document{Path: "stdin", Content: data}, nil
}

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/fractalqb/markst"
)

func init() {
	recordCmd.RunE = record
	addManifestFlags(&recordCmd.Command)
	recordCmd.Flags().BoolVarP(
		&recordCmd.force,
		"force", "f",
		recordCmd.force,
		"Force to overwrite existing reference files")
	recordCmd.Flags().IntVarP(
		&recordCmd.width,
		"width", "w",
		recordCmd.width,
		"Set print width of reference files")
	rootCmd.AddCommand(&recordCmd.Command)
}

var recordCmd = struct {
	cobra.Command
	force bool
	width int
}{
	Command: cobra.Command{
		Use:   "record [case...]",
		Short: "Record converter output as reference files",
		Long: `Run the converter for the cases of a manifest and write its output as
reference files. The references are written in canonical form with line
breaks so that they diff well when they are updated.`,
	},
	width: markst.DefaultDiffWidth,
}

func record(cmd *cobra.Command, cases []string) error {
	s, err := loadSuite(cmd, cases)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	var failed int
	for _, r := range s.Record(ctx, recordCmd.width, recordCmd.force) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Case.Name, r.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d references not recorded", failed)
	}
	return nil
}

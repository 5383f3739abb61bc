package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fractalqb/markst"
	"github.com/fractalqb/markst/internal/logger"
)

func init() {
	compareCmd.RunE = checkFiles
	compareCmd.Flags().StringVarP(&compareCmd.reffile, "reference", "r", "",
		"Set reference file name")
	compareCmd.MarkFlagRequired("reference")
	compareCmd.Flags().IntVar(&compareCmd.diffWidth, "diff-width", markst.DefaultDiffWidth,
		"Set print width of diffs")
	compareCmd.Flags().IntVarP(&compareCmd.context, "context", "U", markst.DefaultDiffContext,
		"Set number of context lines in diffs")
	rootCmd.AddCommand(&compareCmd.Command)
}

var compareCmd = struct {
	cobra.Command
	reffile   string
	diffWidth int
	context   int
}{
	Command: cobra.Command{
		Use:   "compare -r reference [subject...]",
		Short: "Compare a reference markup file to subject files",
		Long: `Compare a reference markup file to subject files. Without subjects the
document is read from stdin. Exits with status 1 if a subject does not
match the reference.`,
	},
}

func checkFiles(cmd *cobra.Command, files []string) error {
	opts, err := markupOptions()
	if err != nil {
		return err
	}
	chk := markst.Checker{
		Options:     opts,
		DiffWidth:   compareCmd.diffWidth,
		DiffContext: compareCmd.context,
	}
	if chk.DiffContext == 0 {
		chk.DiffContext = -1
	}
	ref, err := markst.ReadDocument(compareCmd.reffile)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		subj, err := readStdin()
		if err != nil {
			return err
		}
		return checkDoc(cmd, chk, ref, subj)
	}
	var mismatch bool
	for _, f := range files {
		subj, err := markst.ReadDocument(f)
		if err != nil {
			return err
		}
		switch err = checkDoc(cmd, chk, ref, subj); {
		case err == errMismatch:
			mismatch = true
		case err != nil:
			return err
		}
	}
	if mismatch {
		return errMismatch
	}
	return nil
}

func checkDoc(cmd *cobra.Command, chk markst.Checker, ref, subj markst.Document) error {
	log := logger.Get()
	cmp, err := chk.Check(ref, subj)
	if err != nil {
		return err
	}
	if !cmp.Equivalent() {
		log.Warn("mismatch", "subject", subj.Path, "reference", ref.Path)
		fmt.Fprint(cmd.ErrOrStderr(), cmp.Diff())
		return errMismatch
	}
	log.Info("match", "subject", subj.Path, "reference", ref.Path)
	return nil
}

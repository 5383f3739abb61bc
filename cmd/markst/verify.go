package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fractalqb/markst/internal/logger"
	"github.com/fractalqb/markst/suite"
)

func init() {
	verifyCmd.RunE = verify
	addManifestFlags(&verifyCmd.Command)
	rootCmd.AddCommand(&verifyCmd.Command)
}

var verifyCmd = struct {
	cobra.Command
}{
	Command: cobra.Command{
		Use:   "verify [case...]",
		Short: "Run the converter for manifest cases and compare with the references",
		Long: `Run the converter for the cases of a manifest and compare each output with
its reference. Without case names all cases are run. Canonicalization
options are taken from the manifest unless they are set with flags. Exits
with status 1 if a case fails.`,
	},
}

func addManifestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("manifest", "m", "markst.yaml", "Set manifest file")
	cmd.Flags().IntP("parallel", "j", 0, "Set number of cases run in parallel")
	cmd.PreRunE = bindManifestFlags
}

// bindManifestFlags binds the flags of the command being run. Binding in
// init would let the last command's flags win.
func bindManifestFlags(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlag("manifest", cmd.Flags().Lookup("manifest")); err != nil {
		return err
	}
	return viper.BindPFlag("parallel", cmd.Flags().Lookup("parallel"))
}

// loadSuite reads the manifest. Markup options set on the command line
// override those of the manifest.
func loadSuite(cmd *cobra.Command, cases []string) (*suite.Suite, error) {
	m, err := suite.Load(viper.GetString("manifest"))
	if err != nil {
		return nil, err
	}
	if err = overrideOptions(cmd, &m.Options); err != nil {
		return nil, err
	}
	log := logger.Get()
	m.Converter.Logger = log
	s := m.Suite()
	s.Logger = log
	if p := viper.GetInt("parallel"); p > 0 {
		s.Parallel = p
	}
	if err = s.Select(cases...); err != nil {
		return nil, err
	}
	return s, nil
}

func verify(cmd *cobra.Command, cases []string) error {
	s, err := loadSuite(cmd, cases)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	res := s.Run(ctx)
	w := cmd.ErrOrStderr()
	for i := range res {
		r := &res[i]
		if r.Passed() {
			continue
		}
		fmt.Fprintf(w, "--- FAIL: %s (%s)\n", r.Case.Name, r.Case.Input)
		fmt.Fprintln(w, r.Error())
	}
	passed, failed := suite.Summary(res)
	logger.Get().Info("verified", "passed", passed, "failed", failed)
	if failed > 0 {
		return errMismatch
	}
	return nil
}

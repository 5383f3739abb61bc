// A command line tool for golden file tests of markup converters
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fractalqb/markst"
	"github.com/fractalqb/markst/internal/logger"
)

// errMismatch makes markst exit with status 1, all other errors with 2.
var errMismatch = errors.New("documents do not match")

var rootCmd = &cobra.Command{
	Use:   "markst",
	Short: "Golden file tests for markup converters",
	Long: `markst compares markup documents by their canonical forms. Formatting
that does not change the document, e.g. indentation or attribute order,
does not make documents different.

Examples:
  # Print the canonical form of a document
  markst canon out.xml

  # Compare a converter's output with its reference
  markst compare -r sources_100/1.stl.xml out/1.stl.out.xml

  # Run all cases of a manifest
  markst verify -m markst.yaml

  # Record references for new cases
  markst record -m markst.yaml sample-7`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ./.markst.yaml or $HOME/.markst.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("log-json", false, "log in JSON format")
	flags.String("syntax", "xml", "markup syntax: xml or html")
	flags.String("whitespace", "ignore", "whitespace policy: ignore or strict")
	flags.String("attributes", "sorted", "attribute order: sorted or source")
	flags.StringSlice("exclude", nil, "XPath of elements to exclude from comparison")
	flags.StringSlice("ignore-attrs", nil, "attributes to exclude from comparison")
	flags.Bool("strip-comments", false, "exclude comments from comparison")

	for _, f := range []string{
		"config", "debug", "quiet", "log-json",
		"syntax", "whitespace", "attributes",
		"exclude", "ignore-attrs", "strip-comments",
	} {
		_ = viper.BindPFlag(f, flags.Lookup(f))
	}
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".markst")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("MARKST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func setup(cmd *cobra.Command, args []string) error {
	log := logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log-json"),
	})
	if f := viper.ConfigFileUsed(); f != "" {
		log.Debug("using config", "file", f)
	}
	return nil
}

// markupOptions collects the canonicalization options from flags,
// environment and config file.
func markupOptions() (opts markst.Options, err error) {
	if err = opts.Syntax.UnmarshalText([]byte(viper.GetString("syntax"))); err != nil {
		return opts, err
	}
	if err = opts.Whitespace.UnmarshalText([]byte(viper.GetString("whitespace"))); err != nil {
		return opts, err
	}
	if err = opts.Attributes.UnmarshalText([]byte(viper.GetString("attributes"))); err != nil {
		return opts, err
	}
	opts.Exclude = viper.GetStringSlice("exclude")
	opts.IgnoreAttrs = viper.GetStringSlice("ignore-attrs")
	opts.StripComments = viper.GetBool("strip-comments")
	return opts, nil
}

// overrideOptions replaces the options in opts whose flags are set on the
// command line.
func overrideOptions(cmd *cobra.Command, opts *markst.Options) error {
	flags, err := markupOptions()
	if err != nil {
		return err
	}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("syntax") {
		opts.Syntax = flags.Syntax
	}
	if changed("whitespace") {
		opts.Whitespace = flags.Whitespace
	}
	if changed("attributes") {
		opts.Attributes = flags.Attributes
	}
	if changed("exclude") {
		opts.Exclude = flags.Exclude
	}
	if changed("ignore-attrs") {
		opts.IgnoreAttrs = flags.IgnoreAttrs
	}
	if changed("strip-comments") {
		opts.StripComments = flags.StripComments
	}
	return nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errMismatch):
		return 1
	}
	return 2
}

func main() {
	err := rootCmd.Execute()
	if code := exitCode(err); code != 0 {
		if code > 1 {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(code)
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

type options struct {
	file     string
	strategy string
	format   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "timetable",
		Short:         "Offline school timetable generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "school.yaml", "school description (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug shows residual details)")

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Validate the school file and print the generated timetable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	generate.Flags().StringVarP(&opts.strategy, "strategy", "s", string(timetable.StrategySkipOnConflict), "skip-on-conflict or flag-on-conflict")
	generate.Flags().StringVarP(&opts.format, "format", "o", formatText, "output format: text, csv or json")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the school file without generating",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	root.AddCommand(generate, validate)
	return root
}

func load(opts *options, strategy timetable.Strategy) (*schoolFile, timetable.Input, error) {
	sf, err := loadSchoolFile(opts.file)
	if err != nil {
		return nil, timetable.Input{}, err
	}
	in := sf.input(strategy)
	if err := timetable.Validate(in); err != nil {
		return nil, timetable.Input{}, err
	}
	return sf, in, nil
}

func runValidate(cmd *cobra.Command, opts *options) error {
	sf, in, err := load(opts, timetable.StrategySkipOnConflict)
	if err != nil {
		return describe(err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d classes, %d links, %d teaching slots per day\n",
		opts.file, len(sf.Classes), len(in.Links), in.Week.TeachingSlots())
	for _, warning := range timetable.QualificationWarnings(in) {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	return nil
}

func runGenerate(cmd *cobra.Command, opts *options) error {
	strategy := timetable.Strategy(opts.strategy)
	if !strategy.Valid() {
		return fmt.Errorf("unknown strategy %q", opts.strategy)
	}
	switch opts.format {
	case formatText, formatCSV, formatJSON:
	default:
		return fmt.Errorf("unknown output format %q", opts.format)
	}
	log, err := logger.NewCLI(opts.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sf, in, err := load(opts, strategy)
	if err != nil {
		return describe(err)
	}
	result := timetable.New(timetable.WithLogger(log)).Generate(in)
	log.Info("timetable generated",
		zap.String("file", opts.file),
		zap.Int("placed", result.Placed()),
		zap.Int("unplaced", result.Unplaced()),
	)
	return writeResult(cmd.OutOrStdout(), opts.format, sf, result, timetable.QualificationWarnings(in))
}

func describe(err error) error {
	var verr *timetable.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	msg := "school file is invalid:"
	for _, problem := range verr.Problems {
		msg += "\n  - " + problem.Error()
	}
	return errors.New(msg)
}

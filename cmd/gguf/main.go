// Command gguf is the thin CLI front end spec.md §1 treats as an
// external collaborator: show, inspect-tensor and split-mixtral wrap
// the gguf/moe packages; check and serve are the ambient additions
// from SPEC_FULL.md §4.11.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func setUpLogger(verbose bool) {
	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"component"},
		TimestampFormat: "2006-01-02 15:04:05.000",
		ShowFullLevel:   true,
		CallerFirst:     true,
		CustomCallerFormatter: func(frame *runtime.Frame) string {
			return fmt.Sprintf(" [%s:%d]", filepath.Base(frame.File), frame.Line)
		},
	})
}

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:           "gguf",
		Short:         "Inspect, dequantize and transform GGUF model files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setUpLogger(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newShowCommand(),
		newInspectTensorCommand(),
		newSplitMixtralCommand(),
		newCheckCommand(),
		newServeCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

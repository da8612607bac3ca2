package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/antirez/gguf-tools/moe"
)

func newSplitMixtralCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "split-mixtral <digits> <src> <dst>",
		Short: "Extract a single expert's feed-forward weights from a Mixtral GGUF file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := moe.ParseExpertIDs(args[0])
			if err != nil {
				return err
			}
			logrus.WithField("experts", ids).WithField("src", args[1]).WithField("dst", args[2]).Info("splitting mixtral model")
			return moe.Split(args[1], args[2], ids, overwrite)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite the destination file if it already exists")
	return cmd
}

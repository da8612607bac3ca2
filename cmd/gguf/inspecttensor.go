package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/antirez/gguf-tools/gguf"
)

func newInspectTensorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-tensor <file> <name> [count]",
		Short: "Dequantize a tensor to f32 and print its values",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := uint64(0)
			if len(args) == 3 {
				n, err := strconv.ParseUint(args[2], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid count %q: %w", args[2], err)
				}
				count = n
			}
			return runInspectTensor(args[0], args[1], count)
		},
	}
}

func runInspectTensor(path, name string, count uint64) error {
	s, err := gguf.Open(path, gguf.ModeRead)
	if err != nil {
		return err
	}
	defer s.Close()

	for {
		_, ok, err := s.NextKey()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}

	for {
		t, ok, err := s.NextTensor()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no such tensor: %s", name)
		}
		if t.Name != name {
			continue
		}

		weights, err := s.Weights(t)
		if err != nil {
			return err
		}
		n := t.NumWeights
		if count > 0 && count < n {
			n = count
		}
		values, err := gguf.DecodeF32(t.Type, weights, n)
		if err != nil {
			return err
		}

		for i, v := range values {
			if i > 0 && i%4 == 0 {
				fmt.Println()
			}
			fmt.Printf("%14.6f ", v)
		}
		fmt.Println()
		return nil
	}
}

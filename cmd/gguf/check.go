package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/antirez/gguf-tools/gguf"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Re-validate the format invariants of one or more GGUF files, concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args)
		},
	}
}

// runCheck re-validates spec.md §8's invariants 1-4 against each path,
// one goroutine per file via errgroup. It prints every failure it
// finds (rather than stopping at the first) and returns a non-nil
// error if any file failed anything.
func runCheck(paths []string) error {
	results := make([][]string, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			issues, err := checkFile(path)
			if err != nil {
				results[i] = []string{err.Error()}
				return nil
			}
			results[i] = issues
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for i, path := range paths {
		if len(results[i]) == 0 {
			fmt.Printf("%s: OK\n", path)
			continue
		}
		failed = true
		for _, issue := range results[i] {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, issue)
		}
	}
	if failed {
		return fmt.Errorf("one or more files failed validation")
	}
	return nil
}

func checkFile(path string) ([]string, error) {
	s, err := gguf.Open(path, gguf.ModeRead)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var issues []string

	expectKV := s.MetadataCount()
	expectTensors := s.TensorCount()

	var gotKV uint64
	for {
		key, ok, err := s.NextKey()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		gotKV++
		if key.Name == "general.alignmnet" {
			issues = append(issues, "compatibility: key \"general.alignmnet\" looks like a misspelling of \"general.alignment\" and is not applied")
		}
	}
	if gotKV != expectKV {
		issues = append(issues, fmt.Sprintf("invariant 1: header promised %d kv entries, walk produced %d", expectKV, gotKV))
	}

	var gotTensors uint64
	fileSize := uint64(s.Size())
	for {
		t, ok, err := s.NextTensor()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		gotTensors++

		alignment := s.Alignment()
		if t.AbsOffset%alignment != 0 {
			issues = append(issues, fmt.Sprintf("invariant 2: tensor %q offset %d is not a multiple of alignment %d", t.Name, t.AbsOffset, alignment))
		}
		if t.AbsOffset+t.ByteSize > fileSize {
			issues = append(issues, fmt.Sprintf("invariant 2: tensor %q weights run past end of file (%d+%d > %d)", t.Name, t.AbsOffset, t.ByteSize, fileSize))
		}

		wantSize, err := gguf.BlockSize(t.Type, t.NumWeights)
		if err == nil && wantSize != t.ByteSize {
			issues = append(issues, fmt.Sprintf("invariant 3: tensor %q bsize %d does not match ceil(weights/block)*block_bytes %d", t.Name, t.ByteSize, wantSize))
		}
	}
	if gotTensors != expectTensors {
		issues = append(issues, fmt.Sprintf("invariant 1: header promised %d tensors, walk produced %d", expectTensors, gotTensors))
	}

	if s.DataOffset()%s.Alignment() != 0 {
		issues = append(issues, fmt.Sprintf("invariant 4: data section offset %d is not aligned to %d", s.DataOffset(), s.Alignment()))
	}

	return issues, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/containerd/console"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/antirez/gguf-tools/gguf"
	"github.com/antirez/gguf-tools/internal/glob"
	"github.com/antirez/gguf-tools/internal/printvalue"
)

// valueDisplayWidth returns how many characters of a metadata value's
// display string to keep before eliding, sized to the terminal's
// actual width when stdout is a tty and falling back to a fixed
// width otherwise (piped output, e.g. `gguf show | less`).
func valueDisplayWidth() int {
	const fallback = 120
	cur, err := console.ConsoleFromFile(os.Stdout)
	if err != nil {
		return fallback
	}
	size, err := cur.Size()
	if err != nil || size.Width == 0 {
		return fallback
	}
	if w := int(size.Width) - 40; w > 20 {
		return w
	}
	return fallback
}

func newShowCommand() *cobra.Command {
	var match string
	var full bool

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a header summary, metadata and tensor table for a GGUF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args[0], match, full)
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "only show tensors whose name matches this glob pattern")
	cmd.Flags().BoolVar(&full, "full", false, "print array values in full instead of eliding them")
	return cmd
}

func runShow(path, match string, full bool) error {
	s, err := gguf.Open(path, gguf.ModeRead)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("%s (ver %d): %d key-value pairs, %d tensors\n",
		path, gguf.Version, s.MetadataCount(), s.TensorCount())

	width := valueDisplayWidth()
	for {
		key, ok, err := s.NextKey()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		value := printvalue.Key(key)
		if !full && key.Type == gguf.ValueArray && len(value) > width {
			value = value[:width] + "..."
		}
		fmt.Printf("%s: [%s] %s\n", key.Name, gguf.ValueTypeName(key.Type), value)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"type", "name", "offset", "weights", "bytes"})

	var totalParams uint64
	for {
		t, ok, err := s.NextTensor()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if match != "" && !glob.Match(match, t.Name, false) {
			continue
		}
		table.Append([]string{
			gguf.TypeName(t.Type),
			t.Name,
			fmt.Sprintf("%d", t.AbsOffset),
			fmt.Sprintf("%d", t.NumWeights),
			fmt.Sprintf("%d", t.ByteSize),
		})
		totalParams += t.NumWeights
	}
	table.Render()

	fmt.Printf("Total parameters: %.3fB\n", float64(totalParams)/1e9)
	return nil
}

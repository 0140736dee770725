package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info NAME",
		Short: "Print variables, attributes and row count of a data set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer func() { _ = logger.Sync() }()

			lib, err := openLibrary(logger)
			if err != nil {
				return err
			}
			defer lib.Close()

			ds := lib.Dataset(args[0])
			if err := ds.OpenForRead(); err != nil {
				return err
			}
			defer ds.Close()

			meta, err := ds.ReadMetadata()
			if err != nil {
				return err
			}

			var rows int64
			for {
				if _, err := ds.ReadRow(); err == io.EOF {
					break
				} else if err != nil {
					return err
				}
				rows++
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "data set:  %s\n", ds.Name())
			fmt.Fprintf(out, "rows:      %d\n", rows)
			fmt.Fprintln(out, "variables:")
			for i, v := range meta.KeyMap.Variables() {
				fmt.Fprintf(out, "  %3d  %-24s %s\n", i, v.Name, v.Type)
			}

			if len(meta.Attributes) != 0 {
				keys := make([]string, 0, len(meta.Attributes))
				for k := range meta.Attributes {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				fmt.Fprintln(out, "attributes:")
				for _, k := range keys {
					fmt.Fprintf(out, "  %s=%s\n", k, meta.Attributes[k])
				}
			}
			return nil
		},
	}
}

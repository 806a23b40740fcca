package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type outputFlags struct {
	path   string
	format string
}

func (o *outputFlags) register(cmd *cobra.Command, defaultFormat string, formats string) {
	cmd.Flags().StringVarP(&o.path, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringVarP(&o.format, "format", "f", defaultFormat, "output format ("+formats+")")
}

// open returns the destination writer and a close func
func (o *outputFlags) open(cmd *cobra.Command) (io.Writer, func() error, error) {
	if o.path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(o.path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

// write opens the destination and runs render against it
func (o *outputFlags) write(cmd *cobra.Command, render func(w io.Writer) error) (err error) {
	w, closeFn, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()
	return render(w)
}

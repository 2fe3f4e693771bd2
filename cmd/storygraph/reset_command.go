package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"storygraph/internal/config"
	"storygraph/internal/pipeline"
	"storygraph/internal/registry"
	"storygraph/internal/services"
)

// stdinIsTerminal gates the interactive confirmation; tests replace it.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every asset from the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				assets, err := store.All(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(assets) == 0 {
					fmt.Fprintln(out, "Registry already empty")
					return nil
				}
				if !yes {
					if !stdinIsTerminal() {
						return services.Wrap(services.ErrValidation, "reset", "confirm",
							"stdin is not a terminal; pass --yes to clear the registry", nil)
					}
					confirmed, err := confirm(cmd.InOrStdin(), out,
						fmt.Sprintf("Remove %d assets, including offsets and analysis results? [y/N]: ", len(assets)))
					if err != nil {
						return err
					}
					if !confirmed {
						fmt.Fprintln(out, "Reset cancelled")
						return nil
					}
				}

				release, err := pipeline.NewLease(cfg.LockPath()).Acquire("reset")
				if err != nil {
					return err
				}
				defer release()

				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d assets from %s\n", removed, store.Path())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

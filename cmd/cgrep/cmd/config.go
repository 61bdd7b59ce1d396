package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/configs"
	"github.com/cgrep/cgrep/internal/errs"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold cgrep's project configuration",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .cgreprc.toml at the project root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(path, force)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "path", ".", "directory to write .cgreprc.toml into")
	f.BoolVar(&force, "force", false, "overwrite an existing .cgreprc.toml")

	return cmd
}

func runConfigInit(path string, force bool) error {
	dest := filepath.Join(path, ".cgreprc.toml")

	if !force {
		if _, err := os.Stat(dest); err == nil {
			return errs.Wrap(errs.ErrIO, "config init", fmt.Errorf("%s already exists; rerun with --force to overwrite", dest))
		}
	}

	if err := os.WriteFile(dest, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return errs.Wrap(errs.ErrIO, "write .cgreprc.toml", err)
	}

	fmt.Printf("Wrote %s\n", dest)
	return nil
}

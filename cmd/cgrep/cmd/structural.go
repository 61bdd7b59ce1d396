package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/structural"
)

func newDefinitionCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:     "definition <name>",
		Aliases: []string{"def"},
		Short:   "Locate a symbol's definition site",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefinition(cmd.Context(), args[0], path)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "search root")
	return cmd
}

func runDefinition(ctx context.Context, name, path string) error {
	a, closeApp, err := openApp(path, false)
	if err != nil {
		return err
	}
	defer closeApp()

	files, err := a.Walker.Walk(ctx, scan.Options{Root: a.Root})
	if err != nil {
		return err
	}

	defs, err := structural.FindDefinition(ctx, a.Extractor, files, name)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		fmt.Printf("No definition found for: %s\n", name)
		return nil
	}
	for _, d := range defs {
		fmt.Printf("[%s] %s %s:%d:%d\n", d.Kind, d.Name, d.Path, d.Line, d.Col)
	}
	return nil
}

func newCallersCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "callers <function>",
		Short: "Find call sites of a function, excluding its declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCallers(cmd.Context(), args[0], path)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "search root")
	return cmd
}

func runCallers(ctx context.Context, function, path string) error {
	a, closeApp, err := openApp(path, false)
	if err != nil {
		return err
	}
	defer closeApp()

	files, err := a.Walker.Walk(ctx, scan.Options{Root: a.Root})
	if err != nil {
		return err
	}

	callers, err := structural.FindCallers(files, function)
	if err != nil {
		return err
	}
	if len(callers) == 0 {
		fmt.Printf("No callers found for: %s\n", function)
		return nil
	}
	for _, c := range callers {
		fmt.Printf("%s:%d: %s\n", c.Path, c.Line, c.Code)
	}
	return nil
}

func newReferencesCmd() *cobra.Command {
	var path, changed string
	var maxResults int
	cmd := &cobra.Command{
		Use:     "references <name>",
		Aliases: []string{"refs"},
		Short:   "Find every word-boundary reference to a name",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReferences(cmd.Context(), args[0], path, changed, maxResults)
		},
	}
	f := cmd.Flags()
	f.StringVar(&path, "path", ".", "search root")
	f.StringVar(&changed, "changed", "", "restrict to files changed since this git revision")
	f.IntVar(&maxResults, "max-results", 100, "maximum references to return")
	return cmd
}

func runReferences(ctx context.Context, name, path, changed string, maxResults int) error {
	a, closeApp, err := openApp(path, false)
	if err != nil {
		return err
	}
	defer closeApp()

	var filter *structural.ChangedFiles
	if changed != "" {
		filter, err = structural.NewChangedFiles(ctx, a.Root, changed)
		if err != nil {
			return err
		}
	}

	files, err := a.Walker.Walk(ctx, scan.Options{Root: a.Root})
	if err != nil {
		return err
	}

	refs, err := structural.FindReferences(files, name, maxResults, filter)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Printf("No references found for: %s\n", name)
		return nil
	}
	for _, r := range refs {
		fmt.Printf("%s:%d:%d: %s\n", r.Path, r.Line, r.Col, r.Code)
	}
	return nil
}

func newDependentsCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:     "dependents <file>",
		Aliases: []string{"deps"},
		Short:   "Find files that import the given file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDependents(cmd.Context(), args[0], path)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "search root")
	return cmd
}

func runDependents(ctx context.Context, target, path string) error {
	a, closeApp, err := openApp(path, false)
	if err != nil {
		return err
	}
	defer closeApp()

	files, err := a.Walker.Walk(ctx, scan.Options{Root: a.Root})
	if err != nil {
		return err
	}

	deps, err := structural.FindDependents(files, target)
	if err != nil {
		return err
	}
	if len(deps) == 0 {
		fmt.Printf("No dependents found for: %s\n", target)
		return nil
	}
	for _, d := range deps {
		fmt.Printf("%s:%d: %s\n", d.Path, d.Line, d.ImportLine)
	}
	return nil
}

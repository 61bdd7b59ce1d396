package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/retrieval"
	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/structural"
)

// symbolResult is the JSON/text row for one matched symbol, grounded on
// original_source/src/query/symbols.rs's SymbolResult.
type symbolResult struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Path string `json:"path"`
	Line int    `json:"line"`
}

func newSymbolsCmd() *cobra.Command {
	var path, symType, lang, fileType, glob, exclude, changed string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "symbols <name>",
		Short: "Search extracted symbol definitions by (substring) name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbols(cmd.Context(), args[0], path, symType, lang, fileType, glob, exclude, changed, quiet)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "path", ".", "search root")
	f.StringVar(&symType, "type", "", "restrict to a symbol kind (function, class, struct, ...)")
	f.StringVar(&lang, "lang", "", "restrict to files of this extracted language")
	f.StringVar(&fileType, "file-type", "", "restrict to a file language (by extension)")
	f.StringVar(&glob, "glob", "", "only include paths matching this glob")
	f.StringVar(&exclude, "exclude", "", "exclude paths matching this glob")
	f.StringVar(&changed, "changed", "", "restrict to files changed since this git revision")
	f.BoolVar(&quiet, "quiet", false, "suppress stats output")

	return cmd
}

func runSymbols(ctx context.Context, name, path, symType, lang, fileType, glob, exclude, changed string, quiet bool) error {
	a, closeApp, err := openApp(path, false)
	if err != nil {
		return err
	}
	defer closeApp()

	var changedFilter *structural.ChangedFiles
	if changed != "" {
		changedFilter, err = structural.NewChangedFiles(ctx, a.Root, changed)
		if err != nil {
			return err
		}
	}

	filter := retrieval.NewPathFilter(fileType, glob, exclude)
	nameLower := strings.ToLower(name)

	files, err := a.Walker.Walk(ctx, scan.Options{Root: a.Root})
	if err != nil {
		return err
	}

	var results []symbolResult
	filesSearched := map[string]struct{}{}
	for rec := range files {
		if !filter.Matches(rec.Path) {
			continue
		}
		if changedFilter != nil && !changedFilter.MatchesRelPath(rec.Path) {
			continue
		}
		if lang != "" && rec.Language != lang {
			continue
		}
		if !scan.CodeLanguages[rec.Language] {
			continue
		}

		symbols, err := a.Extractor.Extract(ctx, rec.Content, rec.Language)
		if err != nil {
			continue
		}
		filesSearched[rec.Path] = struct{}{}

		for _, s := range symbols {
			if !strings.Contains(strings.ToLower(s.Name), nameLower) {
				continue
			}
			if symType != "" && string(s.Kind) != strings.ToLower(symType) {
				continue
			}
			results = append(results, symbolResult{Name: s.Name, Kind: string(s.Kind), Path: rec.Path, Line: s.StartLine})
		}
	}

	format := a.Cfg.Profile("human").FormatOrDefault()
	if f := a.Cfg.OutputFormatOrNil(); f != nil {
		format = *f
	}
	if format == config.FormatJSON || format == config.FormatJSON2 {
		return printSymbolsJSON(results)
	}
	return printSymbolsText(results, name, len(filesSearched), quiet)
}

func printSymbolsJSON(results []symbolResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printSymbolsText(results []symbolResult, name string, filesSearched int, quiet bool) error {
	if len(results) == 0 {
		fmt.Printf("No symbols found matching: %s\n", name)
		return nil
	}
	fmt.Printf("\nSearching for symbol: %s\n\n", name)
	for _, r := range results {
		fmt.Printf("  [%s] %s %s:%d\n", r.Kind, r.Name, r.Path, r.Line)
	}
	fmt.Printf("\nFound %d symbols\n", len(results))
	if !quiet {
		fmt.Printf("\n%d files | %d symbols\n", filesSearched, len(results))
	}
	return nil
}

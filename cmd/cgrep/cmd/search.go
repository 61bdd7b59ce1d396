package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/agent"
	"github.com/cgrep/cgrep/internal/cache"
	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/contextpack"
	"github.com/cgrep/cgrep/internal/output"
	"github.com/cgrep/cgrep/internal/retrieval"
	"github.com/cgrep/cgrep/internal/structural"
)

// searchOptions mirrors spec §6's search flag surface.
type searchOptions struct {
	path                string
	maxResults          int
	context             int
	fileType            string
	glob                string
	exclude             string
	quiet               bool
	mode                string
	hybrid              bool
	changed             string
	agentCache          bool
	maxCharsPerSnippet  int
	maxTotalChars       int
	pathAlias           string
	format              string
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:     "search <query>",
		Aliases: []string{"s"},
		Short:   "Search the index with keyword, semantic, or hybrid scoring",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.path, "path", ".", "search root")
	f.IntVar(&opts.maxResults, "max-results", 0, "maximum results to return (0 = config/profile default)")
	f.IntVar(&opts.context, "context", 0, "lines of context around each match")
	f.StringVar(&opts.fileType, "type", "", "restrict to a file language (e.g. go, python)")
	f.StringVar(&opts.glob, "glob", "", "only include paths matching this glob")
	f.StringVar(&opts.exclude, "exclude", "", "exclude paths matching this glob")
	f.BoolVar(&opts.quiet, "quiet", false, "suppress stats output")
	f.StringVar(&opts.mode, "mode", "", "keyword, semantic, or hybrid")
	f.BoolVar(&opts.hybrid, "hybrid", false, "shorthand for --mode hybrid")
	f.StringVar(&opts.changed, "changed", "", "restrict results to files changed since this git revision")
	f.BoolVar(&opts.agentCache, "agent-cache", false, "read/write the Result Cache for this query")
	f.IntVar(&opts.maxCharsPerSnippet, "max-chars-per-snippet", 0, "truncate each snippet to this many characters")
	f.IntVar(&opts.maxTotalChars, "max-total-chars", 0, "truncate total output to this many characters")
	f.StringVar(&opts.pathAlias, "path-alias", "", "rewrite the root prefix of result paths to this alias")
	f.Bool("no-index", false, "reserved for parity with the CLI surface; cgrep always queries the persisted index")
	f.StringVar(&opts.format, "format", "", "text, json, or json2")

	return cmd
}

func runSearch(ctx context.Context, query string, opts *searchOptions) error {
	a, closeApp, err := openApp(opts.path, true)
	if err != nil {
		return err
	}
	defer closeApp()

	profile := a.Cfg.Profile("human")

	mode := retrieval.ModeKeyword
	if parsed, ok := retrieval.ParseMode(string(profile.ModeOrDefault())); ok {
		mode = parsed
	}
	if opts.hybrid {
		mode = retrieval.ModeHybrid
	}
	if opts.mode != "" {
		parsed, err := resolveMode(opts.mode, mode)
		if err != nil {
			return err
		}
		mode = parsed
	}

	maxResults := a.Cfg.MergeMaxResults(nonZeroIntPtr(opts.maxResults))
	if opts.maxResults == 0 {
		maxResults = profile.MaxResultsOrDefault()
	}
	contextLines := profile.ContextOrDefault()
	if opts.context > 0 {
		contextLines = opts.context
	}

	var changedFilter *structural.ChangedFiles
	if opts.changed != "" {
		changedFilter, err = structural.NewChangedFiles(ctx, a.Root, opts.changed)
		if err != nil {
			return err
		}
	}

	retOpts := retrieval.Options{
		Mode:       mode,
		MaxResults: maxResults,
		FileType:   opts.fileType,
		Glob:       opts.glob,
		Exclude:    opts.exclude,
		SearchRoot: a.Root,
	}

	useCache := opts.agentCache || profile.AgentCacheOrDefault()
	var cacheKey cache.Key
	if useCache && a.Cache != nil {
		cacheKey = cache.Key{
			Query:      normalizeQuery(query),
			Mode:       string(mode),
			MaxResults: maxResults,
			Context:    contextLines,
			FileType:   opts.fileType,
			Glob:       opts.glob,
			Exclude:    opts.exclude,
			SearchRoot: a.Root,
		}
		if a.Embeddings != nil {
			cacheKey.EmbeddingModel = a.Embeddings.Model()
		}
	}

	proto := &agent.Protocol{Engine: a.Engine, Root: a.Root}
	if useCache {
		proto.Cache = a.Cache
	}

	results, cacheHit, err := searchWithCache(ctx, a, proto, query, retOpts, useCache, cacheKey)
	if err != nil {
		return err
	}

	if changedFilter != nil {
		results = filterByChangedFiles(results, changedFilter)
	}

	format := resolveFormat(opts.format, profile)
	return renderSearchResults(a, results, query, mode, cacheHit, contextLines, opts, format)
}

// searchWithCache runs the Retrieval Engine directly, or through the Agent
// Protocol's locate cache when useCache is set, so the on-disk fingerprint
// cache (spec §4.11) is exercised the same way `agent locate` uses it.
func searchWithCache(ctx context.Context, a *app, proto *agent.Protocol, query string, opts retrieval.Options, useCache bool, key cache.Key) ([]retrieval.Result, bool, error) {
	if !useCache {
		results, err := a.Engine.Search(ctx, query, opts)
		return results, false, err
	}

	payload, err := proto.Locate(ctx, query, opts, key)
	if err != nil {
		return nil, false, err
	}
	results := make([]retrieval.Result, len(payload.Results))
	for i, r := range payload.Results {
		results[i] = retrieval.Result{Path: r.Path, Score: r.Score, Line: r.Line, Snippet: r.Snippet, ResultID: r.ID}
	}
	return results, payload.Meta.CacheHit, nil
}

func filterByChangedFiles(results []retrieval.Result, filter *structural.ChangedFiles) []retrieval.Result {
	kept := results[:0]
	for _, r := range results {
		if filter.MatchesRelPath(r.Path) {
			kept = append(kept, r)
		}
	}
	return kept
}

func resolveFormat(flag string, profile config.ProfileConfig) config.OutputFormat {
	if flag != "" {
		switch flag {
		case "json":
			return config.FormatJSON
		case "json2":
			return config.FormatJSON2
		default:
			return config.FormatText
		}
	}
	return profile.FormatOrDefault()
}

func renderSearchResults(a *app, results []retrieval.Result, query string, mode retrieval.Mode, cacheHit bool, contextLines int, opts *searchOptions, format config.OutputFormat) error {
	switch format {
	case config.FormatJSON:
		return printJSON(results)
	case config.FormatJSON2:
		return printJSON2(a, results, query, mode, cacheHit, opts)
	default:
		return printSearchText(a, results, contextLines, opts)
	}
}

func printJSON(results []retrieval.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

type json2Meta struct {
	SchemaVersion int    `json:"schema_version"`
	Stage         string `json:"stage"`
	CacheHit      bool   `json:"cache_hit"`
	SearchRoot    string `json:"search_root"`
	Mode          string `json:"mode"`
	Budget        int    `json:"budget"`
}

type json2Envelope struct {
	Meta    json2Meta           `json:"meta"`
	Results []retrieval.Result  `json:"results"`
}

func printJSON2(a *app, results []retrieval.Result, query string, mode retrieval.Mode, cacheHit bool, opts *searchOptions) error {
	env := json2Envelope{
		Meta: json2Meta{
			SchemaVersion: agent.SchemaVersion,
			Stage:         "search",
			CacheHit:      cacheHit,
			SearchRoot:    a.Root,
			Mode:          string(mode),
			Budget:        opts.maxTotalChars,
		},
		Results: applyCharBudgets(results, opts),
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printSearchText(a *app, results []retrieval.Result, contextLines int, opts *searchOptions) error {
	w := output.NewAuto(os.Stdout)
	if !opts.quiet {
		w.Statusf("🔍", "%d results", len(results))
	}
	if len(results) == 0 {
		return nil
	}

	lineResults := make([]contextpack.LineResult, len(results))
	for i, r := range results {
		lineResults[i] = contextpack.LineResult{Path: r.Path, Line: r.Line}
	}
	builder := contextPackerFor(a.Root, contextLines)
	packs, err := builder.Build(lineResults)
	if err != nil {
		// Fall back to bare snippets when a file can't be re-read.
		for _, r := range applyCharBudgets(results, opts) {
			fmt.Printf("%s\n%s\n\n", displayPath(r.Path, opts.pathAlias, a.Root), r.Snippet)
		}
		return nil
	}

	for _, p := range packs {
		for _, b := range p.Blocks {
			fmt.Printf("%s:%d-%d\n%s\n\n", displayPath(p.Path, opts.pathAlias, a.Root), b.StartLine, b.EndLine, truncate(b.Text, opts.maxCharsPerSnippet))
		}
	}
	return nil
}

// applyCharBudgets truncates each snippet to maxCharsPerSnippet and drops
// trailing results once the running total exceeds maxTotalChars. Both
// budgets are no-ops when zero.
func applyCharBudgets(results []retrieval.Result, opts *searchOptions) []retrieval.Result {
	if opts.maxCharsPerSnippet <= 0 && opts.maxTotalChars <= 0 {
		return results
	}
	out := make([]retrieval.Result, 0, len(results))
	total := 0
	for _, r := range results {
		r.Snippet = truncate(r.Snippet, opts.maxCharsPerSnippet)
		if opts.maxTotalChars > 0 && total+len(r.Snippet) > opts.maxTotalChars {
			break
		}
		total += len(r.Snippet)
		out = append(out, r)
	}
	return out
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars]
}

func displayPath(path, alias, root string) string {
	if alias == "" {
		return path
	}
	return strings.TrimPrefix(alias+"/"+path, "./")
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func nonZeroIntPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

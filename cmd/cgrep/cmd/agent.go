package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/agent"
	"github.com/cgrep/cgrep/internal/cache"
	"github.com/cgrep/cgrep/internal/contextpack"
	"github.com/cgrep/cgrep/internal/retrieval"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Two-stage locate/expand protocol for coding-agent callers",
	}
	cmd.AddCommand(newAgentLocateCmd())
	cmd.AddCommand(newAgentExpandCmd())
	return cmd
}

func newAgentLocateCmd() *cobra.Command {
	var path, mode string
	var maxResults int

	cmd := &cobra.Command{
		Use:   "locate <query>",
		Short: "Run a query and return a cache-wrapped results envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentLocate(cmd.Context(), args[0], path, mode, maxResults)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "path", ".", "search root")
	f.StringVar(&mode, "mode", "hybrid", "keyword, semantic, or hybrid")
	f.IntVar(&maxResults, "max-results", 0, "maximum results (0 = agent profile default)")

	return cmd
}

func runAgentLocate(ctx context.Context, query, path, modeFlag string, maxResults int) error {
	a, closeApp, err := openApp(path, true)
	if err != nil {
		return err
	}
	defer closeApp()

	profile := a.Cfg.Profile("agent")
	mode, err := resolveMode(modeFlag, retrieval.ModeHybrid)
	if err != nil {
		return err
	}
	if maxResults == 0 {
		maxResults = profile.MaxResultsOrDefault()
	}

	opts := retrieval.Options{Mode: mode, MaxResults: maxResults, SearchRoot: a.Root}
	key := cache.Key{
		Query:      normalizeQuery(query),
		Mode:       string(mode),
		MaxResults: maxResults,
		SearchRoot: a.Root,
	}
	if a.Embeddings != nil {
		key.EmbeddingModel = a.Embeddings.Model()
	}

	proto := &agent.Protocol{Engine: a.Engine, Cache: a.Cache, Root: a.Root}
	payload, err := proto.Locate(ctx, query, opts, key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func newAgentExpandCmd() *cobra.Command {
	var path string
	var ids []string
	var contextLines int

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Resolve stable result ids back into file context windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentExpand(cmd.Context(), ids, path, contextLines)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "path", ".", "search root")
	f.StringArrayVar(&ids, "id", nil, "result id to resolve (repeatable)")
	f.IntVarP(&contextLines, "context", "C", contextpack.DefaultContextLines, "lines of context on either side of the match")

	return cmd
}

func runAgentExpand(ctx context.Context, ids []string, path string, contextLines int) error {
	a, closeApp, err := openApp(path, false)
	if err != nil {
		return err
	}
	defer closeApp()

	proto := &agent.Protocol{Engine: a.Engine, Walker: a.Walker, Root: a.Root}
	payload, err := proto.Expand(ctx, ids, contextLines)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/clawscope/internal/cache"
	"github.com/stellarlinkco/clawscope/internal/config"
	"github.com/stellarlinkco/clawscope/internal/enrich"
	"github.com/stellarlinkco/clawscope/internal/event"
	"github.com/stellarlinkco/clawscope/internal/store"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Attach one-line summaries to messages and file writes",
	RunE:  runSummarize,
}

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Classify the sentiment of user messages",
	RunE:  runSentiment,
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Attach embedding vectors to user messages",
	RunE:  runEmbed,
}

var similarCmd = &cobra.Command{
	Use:   "similar <query>",
	Short: "Rank embedded events by similarity to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

var (
	forceFlag bool
	topKFlag  int
)

func init() {
	for _, c := range []*cobra.Command{summarizeCmd, sentimentCmd, embedCmd} {
		c.Flags().BoolVar(&forceFlag, "force", false, "Re-annotate events that already carry the field")
	}
	similarCmd.Flags().IntVarP(&topKFlag, "top", "k", config.DefaultSimilarTopK, "Number of results")
}

// enrichSetup loads config and the collection, and opens the result
// cache. Missing collection and missing credentials are fatal here,
// before any work starts; per-item failures later are not.
func enrichSetup() (*config.Config, *store.Store, *event.Collection, *cache.Cache, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	st := store.New(cfg.Extract.DataDir)
	col, err := st.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	ch, err := cache.Open(filepath.Join(cfg.Extract.DataDir, "enrichcache.db"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cfg, st, col, ch, nil
}

func newRunner(cfg *config.Config, st *store.Store) *enrich.Runner {
	return &enrich.Runner{
		Concurrency:     cfg.Enrich.Concurrency,
		Delay:           time.Duration(cfg.Enrich.DelayMs) * time.Millisecond,
		CheckpointEvery: cfg.Enrich.CheckpointEvery,
		Checkpoint:      st.Save,
	}
}

// embedBasis is the text an embedding or sentiment call operates on:
// the cleaned embedding basis when present, the display message otherwise.
func embedBasis(e *event.LogEvent) string {
	if e.EmbeddingText != "" {
		return e.EmbeddingText
	}
	return e.Message
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, st, col, ch, err := enrichSetup()
	if err != nil {
		return err
	}
	defer ch.Close()

	annotator, err := enrich.NewAnnotator(cfg.Enrich)
	if err != nil {
		return err
	}
	runner := newRunner(cfg, st)
	ctx := context.Background()

	// Pass 1: message summaries.
	msgIdx := enrich.SelectIndices(col, forceFlag,
		func(e *event.LogEvent) bool {
			return e.Type == event.TypeUserMessage || e.Type == event.TypeAssistantMessage
		},
		func(e *event.LogEvent) bool { return e.Summary != "" })
	msgStats, err := runner.Run(ctx, col, msgIdx, func(ctx context.Context, e *event.LogEvent) error {
		if hit, ok, err := ch.GetText(cache.KindSummary, cfg.Enrich.Model, e.Message); err == nil && ok {
			e.Summary = hit
			return nil
		}
		out, err := annotator.Summarize(ctx, e.Message)
		if err != nil {
			return err
		}
		e.Summary = out
		return ch.PutText(cache.KindSummary, cfg.Enrich.Model, e.Message, out)
	})
	if err != nil {
		return err
	}

	// Pass 2: modification summaries for file writes.
	writeIdx := enrich.SelectIndices(col, forceFlag,
		func(e *event.LogEvent) bool { return e.Type == event.TypeFileWrite },
		func(e *event.LogEvent) bool { return e.ModSummary != "" })
	writeStats, err := runner.Run(ctx, col, writeIdx, func(ctx context.Context, e *event.LogEvent) error {
		key := e.Category + "\x00" + e.Message
		if hit, ok, err := ch.GetText(cache.KindModSummary, cfg.Enrich.Model, key); err == nil && ok {
			e.ModSummary = hit
			return nil
		}
		out, err := annotator.SummarizeModification(ctx, e.Category, e.Message)
		if err != nil {
			return err
		}
		e.ModSummary = out
		return ch.PutText(cache.KindModSummary, cfg.Enrich.Model, key, out)
	})
	if err != nil {
		return err
	}

	if err := st.Save(col); err != nil {
		return err
	}
	fmt.Printf("Summaries: %d/%d messages, %d/%d file writes (failed %d)\n",
		msgStats.Enriched, msgStats.Targets, writeStats.Enriched, writeStats.Targets,
		msgStats.Failed+writeStats.Failed)
	return nil
}

func runSentiment(cmd *cobra.Command, args []string) error {
	cfg, st, col, ch, err := enrichSetup()
	if err != nil {
		return err
	}
	defer ch.Close()

	annotator, err := enrich.NewAnnotator(cfg.Enrich)
	if err != nil {
		return err
	}
	runner := newRunner(cfg, st)

	indices := enrich.SelectIndices(col, forceFlag,
		func(e *event.LogEvent) bool { return e.Type == event.TypeUserMessage },
		func(e *event.LogEvent) bool { return e.Sentiment != "" })
	stats, err := runner.Run(context.Background(), col, indices, func(ctx context.Context, e *event.LogEvent) error {
		basis := embedBasis(e)
		if hit, ok, err := ch.GetText(cache.KindSentiment, cfg.Enrich.Model, basis); err == nil && ok {
			e.Sentiment = hit
			return nil
		}
		label, err := annotator.Sentiment(ctx, basis)
		if err != nil {
			return err
		}
		e.Sentiment = label
		return ch.PutText(cache.KindSentiment, cfg.Enrich.Model, basis, label)
	})
	if err != nil {
		return err
	}

	if err := st.Save(col); err != nil {
		return err
	}
	fmt.Printf("Sentiment: %d/%d user messages (failed %d)\n", stats.Enriched, stats.Targets, stats.Failed)
	return nil
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, st, col, ch, err := enrichSetup()
	if err != nil {
		return err
	}
	defer ch.Close()

	embedder, err := enrich.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	runner := newRunner(cfg, st)
	model := cfg.Enrich.Embedding.Model

	indices := enrich.SelectIndices(col, forceFlag,
		func(e *event.LogEvent) bool { return e.Type == event.TypeUserMessage },
		func(e *event.LogEvent) bool { return len(e.Embedding) > 0 })
	stats, err := runner.Run(context.Background(), col, indices, func(ctx context.Context, e *event.LogEvent) error {
		basis := embedBasis(e)
		if basis == "" {
			return fmt.Errorf("no embedding basis")
		}
		if vec, ok, err := ch.GetVector(model, basis); err == nil && ok {
			e.Embedding = vec
			return nil
		}
		vec, err := embedder.Embed(ctx, basis)
		if err != nil {
			return err
		}
		e.Embedding = vec
		return ch.PutVector(model, basis, vec)
	})
	if err != nil {
		return err
	}

	if err := st.Save(col); err != nil {
		return err
	}
	fmt.Printf("Embeddings: %d/%d user messages (failed %d)\n", stats.Enriched, stats.Targets, stats.Failed)
	return nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st := store.New(cfg.Extract.DataDir)
	col, err := st.Load()
	if err != nil {
		return err
	}

	embedder, err := enrich.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	query, err := embedder.Embed(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		e     *event.LogEvent
		score float64
	}
	var ranked []scored
	for i := range col.Events {
		e := &col.Events[i]
		if len(e.Embedding) == 0 {
			continue
		}
		score, err := event.CosineSimilarity(query, e.Embedding)
		if err != nil {
			continue
		}
		ranked = append(ranked, scored{e: e, score: score})
	}
	if len(ranked) == 0 {
		fmt.Println("No embedded events; run 'clawscope embed' first")
		return nil
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	top := topKFlag
	if top <= 0 || top > len(ranked) {
		top = len(ranked)
	}
	for _, s := range ranked[:top] {
		fmt.Printf("%.3f  %s  %-18s  %s\n", s.score, s.e.Time, s.e.Type, event.Truncate(embedBasis(s.e), 100))
	}
	return nil
}

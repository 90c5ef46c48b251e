// Copyright 2025 Sozialkompass
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sozialkompass/semcore"
	"github.com/sozialkompass/semcore/ai"
	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/embedding"
	"github.com/sozialkompass/semcore/search"
)

func main() {
	app := &cli.App{
		Name:  "semcore",
		Usage: "Semantic retrieval and grounded answers over benefits content",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index entries from a JSON file into the vector store",
				ArgsUsage: "<entries.json>",
				Action:    indexCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N entries",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:  "batched-flush",
						Usage: "Defer cache persistence to the end of the run",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for the embedding pass",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search indexed entries",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
						Value: search.DefaultTopK,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Similarity floor in [0,1]",
						Value: search.DefaultMinSimilarity,
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Apply the heuristic reranking pass",
					},
					&cli.StringSliceFlag{
						Name:  "filter",
						Usage: "Metadata filter as key=value (repeatable)",
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed corpus",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "structured",
						Usage: "Request a fixed-schema JSON answer",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Documents fed into context assembly",
						Value: search.DefaultTopK,
					},
				),
			},
			{
				Name:   "cache-purge",
				Usage:  "Clear the embedding cache",
				Action: cachePurgeCommand,
				Flags:  commonFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Data directory for the vector index and embedding cache",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "badger",
			Usage: "Use BadgerDB storage instead of JSON files",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "generator-model",
			Usage: "Generation model name",
			Value: "qwen2.5:3b",
		},
	}
}

func openSystem(c *cli.Context, extra ...semcore.SystemOption) (*semcore.System, error) {
	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := append([]semcore.SystemOption{semcore.WithAIConfig(config)}, extra...)
	if c.Bool("badger") {
		opts = append(opts, semcore.WithBadgerStorage())
	}

	system, err := semcore.NewSystem(c.String("data"), opts...)
	if err != nil {
		return nil, err
	}
	if err := system.Load(c.Context); err != nil {
		system.Close()
		return nil, err
	}
	return system, nil
}

func indexCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one entries file argument")
	}

	entries, err := readEntries(c.Args().First())
	if err != nil {
		return err
	}

	var opts []semcore.SystemOption
	if c.Bool("batched-flush") {
		opts = append(opts, semcore.WithFlushPolicy(embedding.FlushBatched))
	}

	system, err := openSystem(c, opts...)
	if err != nil {
		return err
	}
	defer system.Close()

	tracker := search.NewProgressTracker(os.Stderr, c.Int("report-interval"))

	var report *search.IndexReport
	err = retryWithBackoff(c.Context, func() error {
		var runErr error
		report, runErr = system.Searcher().IndexAll(c.Context, entries, tracker.Update)
		return runErr
	}, c.Int("max-retries"), c.Duration("retry-delay"))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	tracker.Finish()

	if err := system.EmbeddingService().Flush(c.Context); err != nil {
		return err
	}

	usage := system.EmbeddingService().Usage()
	fmt.Fprintf(os.Stderr, "Indexed %d/%d entries (%d failed) in %s (%.1f entries/s)\n",
		report.Success, report.Total, report.Failed, report.Elapsed.Round(time.Millisecond), report.Throughput())
	fmt.Fprintf(os.Stderr, "Embedding usage: %d provider calls, %d cache hits, %d tokens\n",
		usage.ProviderCalls, usage.CacheHits, usage.Tokens)

	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	filter, err := parseFilter(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	results, err := system.Searcher().Search(c.Context, search.Query{
		Text:             c.Args().First(),
		TopK:             c.Int("top-k"),
		MinSimilarity:    float32(c.Float64("min-similarity")),
		MinSimilaritySet: true,
		Filter:           filter,
		Rerank:           c.Bool("rerank"),
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%2d. [%s] %s (score %.3f, similarity %.3f)\n",
			i+1, result.Id, result.Title, result.Score, result.Similarity)
		if result.Description != "" {
			fmt.Printf("    %s\n", result.Description)
		}
		if result.URL != "" {
			fmt.Printf("    %s\n", result.URL)
		}
	}

	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one question argument")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewPipeline()
	if err != nil {
		return err
	}

	question := c.Args().First()

	if c.Bool("structured") {
		answer, err := pipeline.AskStructured(c.Context, question)
		if err != nil {
			return err
		}
		encoded, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	answer, err := pipeline.Ask(c.Context, question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Printf("\nQuellen: %s\n", strings.Join(answer.Citations, ", "))
	}
	if !answer.Grounded {
		fmt.Fprintln(os.Stderr, "Warnung: Antwort konnte nicht vollständig auf die Quellen zurückgeführt werden.")
	}

	return nil
}

func cachePurgeCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	before, err := system.CacheRepository().Count(c.Context)
	if err != nil {
		return err
	}
	if err := system.CacheRepository().Clear(c.Context); err != nil {
		return err
	}
	if err := system.CacheRepository().Save(c.Context); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Purged %d cached embeddings\n", before)
	return nil
}

// readEntries loads the entry-store export: a JSON array of entries.
func readEntries(path string) ([]*core.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries file: %w", err)
	}

	var entries []*core.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse entries file: %w", err)
	}
	return entries, nil
}

func parseFilter(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}
		filter[key] = value
	}
	return filter, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

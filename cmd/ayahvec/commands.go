package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/ayahvec/arabic"
	"github.com/viant/ayahvec/engine"
	"github.com/viant/ayahvec/generate"
	"github.com/viant/ayahvec/index/bruteforce"
	"github.com/viant/ayahvec/scan"
	"github.com/viant/ayahvec/source"
	"github.com/viant/ayahvec/store"
	"golang.org/x/time/rate"
)

func openDB(dsn string) (*sql.DB, error) {
	if err := engine.RegisterFunctions(); err != nil {
		return nil, err
	}
	db, err := engine.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	return db, nil
}

func (a *app) convertCmd() *cobra.Command {
	var jsonPath, dsn, table, outPath string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert precomputed embeddings (JSON or SQLite) into a binary store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (jsonPath == "") == (dsn == "") {
				return fmt.Errorf("exactly one of --json or --db is required")
			}
			var records []store.Record
			if jsonPath != "" {
				f, err := os.Open(jsonPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if records, err = source.ReadJSONEmbeddings(f); err != nil {
					return err
				}
			} else {
				db, err := openDB(dsn)
				if err != nil {
					return err
				}
				defer db.Close()
				t := &source.EmbeddingTable{DB: db, Name: table, Columns: source.DefaultEmbeddingColumns}
				if records, err = t.Records(cmd.Context()); err != nil {
					return err
				}
			}
			set, err := store.NewSet(records)
			if err != nil {
				return err
			}
			return a.write(cmd.Context(), outPath, set)
		},
	}
	cmd.Flags().StringVar(&jsonPath, "json", "", "Embeddings JSON document")
	cmd.Flags().StringVar(&dsn, "db", "", "SQLite database holding an embeddings table")
	cmd.Flags().StringVar(&table, "table", generate.DefaultCacheTable, "Embeddings table")
	cmd.Flags().StringVar(&outPath, "out", "", "Output store path (defaults to store.path)")
	return cmd
}

func (a *app) write(ctx context.Context, path string, set *store.Set) error {
	if path == "" {
		path = a.cfg.Store.Path
	}
	if err := store.WriteFile(path, set); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "store written", "path", path, "records", set.Len(), "dimension", set.Dim(), "bytes", set.EncodedSize())
	fmt.Fprintf(a.out, "wrote %d records (dim %d, %d bytes) to %s\n", set.Len(), set.Dim(), set.EncodedSize(), path)
	return nil
}

// builder wires the configured embedder, concurrency and rate limit.
func (a *app) builder() *generate.Builder {
	g := a.cfg.Generate
	embedder := generate.NewOpenAIEmbedder(a.cfg.Embed.BaseURL, a.cfg.Embed.Model, a.cfg.Embed.APIKey)
	builder := generate.NewBuilder(embedder.Embed)
	builder.Concurrency = g.Concurrency
	builder.BatchSize = g.BatchSize
	builder.Logger = a.logger
	if g.RatePerSecond > 0 {
		builder.Limiter = rate.NewLimiter(rate.Limit(g.RatePerSecond), max(g.Burst, 1))
	}
	return builder
}

func (a *app) buildCmd() *cobra.Command {
	var dsn, table, cachePath, outPath string
	var verses bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed commentary (or verse) rows through the configured model and write a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dsn == "" {
				dsn = a.cfg.Database.DSN
			}
			db, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			var src source.VerseSource
			if verses {
				if table == "" && len(a.cfg.Database.Tables) > 0 {
					table = a.cfg.Database.Tables[0]
				}
				src = source.NewTable(db, table, source.QuranColumns)
			} else {
				if table == "" {
					table = a.cfg.Database.TafsirTable
				}
				tafsir := source.NewTafsir(source.NewTable(db, table, source.TafsirColumns))
				tafsir.MinLength = a.cfg.Generate.MinLength
				src = tafsir
			}

			g := a.cfg.Generate
			builder := a.builder()
			if cachePath != "" {
				cacheDB, err := openDB(cachePath)
				if err != nil {
					return err
				}
				defer cacheDB.Close()
				if builder.Cache, err = generate.NewSQLiteCache(ctx, cacheDB, g.CacheTable); err != nil {
					return err
				}
			}

			res, err := builder.Build(ctx, src)
			if err != nil {
				return err
			}
			return a.write(ctx, outPath, res.Set)
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "", "Corpus database (defaults to database.dsn)")
	cmd.Flags().StringVar(&table, "table", "", "Source table (defaults to database.tafsir_table, or the first verse table with --verses)")
	cmd.Flags().BoolVar(&verses, "verses", false, "Embed verse text instead of commentary")
	cmd.Flags().StringVar(&cachePath, "cache", "ayahvec_cache.db", "SQLite embedding cache, empty to disable")
	cmd.Flags().StringVar(&outPath, "out", "", "Output store path (defaults to store.path)")
	return cmd
}

func (a *app) queriesCmd() *cobra.Command {
	var file, outPath string
	cmd := &cobra.Command{
		Use:   "queries [phrase...]",
		Short: "Embed search phrases into a JSON file of precomputed query vectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := args
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				listed, err := generate.ReadQueryList(f)
				f.Close()
				if err != nil {
					return err
				}
				queries = append(listed, queries...)
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries: pass phrases or --file")
			}
			embedded, err := a.builder().Queries(cmd.Context(), queries)
			if err != nil {
				return err
			}
			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := generate.WriteQueries(out, embedded); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %d queries (dim %d) to %s\n", len(embedded), len(embedded[0].Embedding), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Phrase list, one per line ('#' starts a comment)")
	cmd.Flags().StringVar(&outPath, "out", "query_embeddings.json", "Output JSON path")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [store]",
		Short: "Validate a binary store and print a summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Store.Path
			if len(args) == 1 {
				path = args[0]
			}
			set, err := store.ReadFile(path)
			if err != nil {
				return err
			}
			s := store.Stats(set)
			fmt.Fprintf(a.out, "records:    %d\n", s.Count)
			fmt.Fprintf(a.out, "dimension:  %d\n", s.Dim)
			fmt.Fprintf(a.out, "bytes:      %d\n", s.Size)
			fmt.Fprintf(a.out, "surahs:     %d\n", s.Surahs)
			fmt.Fprintf(a.out, "norm range: %.4f..%.4f\n", s.MinNorm, s.MaxNorm)
			fmt.Fprintf(a.out, "zero norm:  %d\n", s.ZeroNorm)
			if len(s.DuplicateIDs) > 0 {
				fmt.Fprintf(a.out, "duplicate ids: %v\n", s.DuplicateIDs)
			}
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var storePath, key, text string
	var k int
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Rank stored records by cosine similarity to a verse or a text query",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (key == "") == (text == "") {
				return fmt.Errorf("exactly one of --key or --text is required")
			}
			if storePath == "" {
				storePath = a.cfg.Store.Path
			}
			if !cmd.Flags().Changed("k") {
				k = a.cfg.Search.K
			}
			set, err := store.ReadFile(storePath)
			if err != nil {
				return err
			}
			var query []float32
			if key != "" {
				surah, ayah, err := parseKey(key)
				if err != nil {
					return err
				}
				for _, rec := range set.Records() {
					if int(rec.Surah) == surah && int(rec.Ayah) == ayah {
						query = rec.Vector
						break
					}
				}
				if query == nil {
					return fmt.Errorf("no record for %s in %s", key, storePath)
				}
			} else {
				embedder := generate.NewOpenAIEmbedder(a.cfg.Embed.BaseURL, a.cfg.Embed.Model, a.cfg.Embed.APIKey)
				if query, err = embedder.Embed(cmd.Context(), text); err != nil {
					return err
				}
			}
			matches, err := bruteforce.New(set).Query(query, k)
			if err != nil {
				return err
			}
			for i, m := range matches {
				fmt.Fprintf(a.out, "%2d. %d:%d\tid=%d\tscore=%.4f\n", i+1, m.Record.Surah, m.Record.Ayah, m.Record.ID, m.Score)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "Store path (defaults to store.path)")
	cmd.Flags().StringVar(&key, "key", "", "Use the stored vector of surah:ayah as the query")
	cmd.Flags().StringVar(&text, "text", "", "Embed this text as the query")
	cmd.Flags().IntVar(&k, "k", 10, "Number of matches (defaults to search.k)")
	return cmd
}

func parseKey(key string) (int, int, error) {
	s, a, ok := strings.Cut(key, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid verse key %q, want surah:ayah", key)
	}
	surah, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid verse key %q: %w", key, err)
	}
	ayah, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid verse key %q: %w", key, err)
	}
	return surah, ayah, nil
}

func (a *app) scanCmd() *cobra.Command {
	var dsn string
	var tables []string
	var onlyMerged bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report merged words, formatting markers and stray stop tokens in verse tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.Database.DSN
			}
			scanner, err := a.cfg.Scanner()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("only-merged") {
				scanner.OnlyMerged = onlyMerged
			}
			db, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if len(tables) == 0 {
				tables = a.cfg.Database.Tables
			}
			for _, name := range tables {
				report, err := scanner.Scan(cmd.Context(), source.NewTable(db, name, source.QuranColumns))
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(a.out, "== %s: %d verses, %d merged, %d markers, %d stray stops\n",
					name, report.Scanned, len(report.Merged()), report.Count(scan.KindMarker), report.Count(scan.KindStrayStop))
				for _, f := range report.Findings {
					fmt.Fprintln(a.out, f.String())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "", "Corpus database (defaults to database.dsn)")
	cmd.Flags().StringSliceVar(&tables, "table", nil, "Verse tables (defaults to database.tables)")
	cmd.Flags().BoolVar(&onlyMerged, "only-merged", false, "Report only positive merges")
	return cmd
}

func (a *app) findCmd() *cobra.Command {
	var dsn string
	var tables []string
	cmd := &cobra.Command{
		Use:   "find <text>",
		Short: "Diacritic-insensitive verse search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.Database.DSN
			}
			tokenizer, err := a.cfg.Tokenizer()
			if err != nil {
				return err
			}
			needle := tokenizer.Normalizer().Normalize(args[0])
			db, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if len(tables) == 0 {
				tables = a.cfg.Database.Tables
			}
			for _, name := range tables {
				t := source.NewTable(db, name, source.QuranColumns)
				// ar_normalize only knows the default diacritics
				if tokenizer.Normalizer().Diacritics().Equal(arabic.Diacritics) {
					t.NormalizedContains = needle
				}
				err := t.Iterate(cmd.Context(), func(v source.Verse) error {
					normalized := tokenizer.Normalizer().Normalize(v.Text)
					offset := strings.Index(normalized, needle)
					if offset < 0 {
						return nil
					}
					// the word holding the first matched rune
					word := tokenizer.Count(normalized[:offset] + "x")
					fmt.Fprintf(a.out, "%s\t%s\tword %d\t%s\n", name, v.Key, word, tokenizer.StripStops(v.Text))
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "", "Corpus database (defaults to database.dsn)")
	cmd.Flags().StringSliceVar(&tables, "table", nil, "Verse tables (defaults to database.tables)")
	return cmd
}

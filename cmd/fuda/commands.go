package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/cache"
	"github.com/hyperjump/fuda/internal/cli"
	"github.com/hyperjump/fuda/internal/keyword"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/server"
	"github.com/hyperjump/fuda/internal/storage"
	"github.com/hyperjump/fuda/internal/watcher"
)

func serverCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Close()

			opts := []server.Option{server.WithSpeller(keyword.NewSpeller(components.Index, 2))}
			if len(cfg.Watch.Directories) > 0 {
				w := watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
					components.Ingester, watcher.WithLogger(logger))
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("failed to start watcher: %w", err)
				}
				defer w.Stop()
				go w.SyncExisting(ctx)
				opts = append(opts, server.WithWatch(w))
			}

			if cfg.Cache.SweepSchedule != "" {
				sweeper, err := cache.NewSweeper(cfg.Cache.SweepSchedule, components.Storage, logger)
				if err != nil {
					return err
				}
				sweeper.Start()
				defer sweeper.Stop()
			}

			srv := server.NewServer(components.Decks, components.Ingester, components.Storage,
				components.Index, cfg, logger, opts...)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sigChan:
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			}

			logger.Info("Shutting down...")
			cancel()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Stop(shutdownCtx)
		},
	}
}

func generateCmd(g *globalFlags) *cobra.Command {
	var speed, userID, serverURL, output string
	cmd := &cobra.Command{
		Use:   "generate <slide-id>",
		Short: "Generate (or fetch the cached) flashcard deck for a slide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			contentID := args[0]
			var deck *models.Deck
			if serverURL != "" {
				var resp struct {
					*models.Deck
				}
				req := map[string]string{"content_id": contentID, "learning_speed": speed, "user_id": userID}
				if err := newAPIClient(serverURL).do(ctx, http.MethodPost, "/api/v1/flashcards", req, &resp); err != nil {
					return err
				}
				deck = resp.Deck
			} else {
				tier, err := models.ParseTier(speed)
				if err != nil {
					return err
				}
				err = withComponents(ctx, g, func(c *Components) error {
					if speed == "" && userID != "" {
						deck, err = c.Decks.GenerateForUser(ctx, userID, contentID)
					} else {
						deck, err = c.Decks.GenerateDeck(ctx, contentID, tier)
					}
					return err
				})
				if err != nil {
					return err
				}
			}
			return cli.WriteDeck(cmd.OutOrStdout(), contentID, deck, cli.ParseFormat(output))
		},
	}
	cmd.Flags().StringVarP(&speed, "speed", "s", "", "learning speed: slow, moderate or fast (default moderate)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "use the stored learning speed of this learner")
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, "server URL (empty = open the database directly)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func ingestCmd(g *globalFlags) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "ingest <file-or-directory>...",
		Short: "Extract slide files and store them for generation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withComponents(ctx, g, func(c *Components) error {
				for _, path := range args {
					info, err := os.Stat(path)
					if err != nil {
						return fmt.Errorf("failed to stat path: %w", err)
					}
					if info.IsDir() {
						n, err := c.Ingester.IngestDirectory(ctx, path, recursive)
						if err != nil {
							return fmt.Errorf("ingesting directory failed: %w", err)
						}
						fmt.Fprintf(out, "Ingested %d file(s) from %s\n", n, path)
						continue
					}
					res, err := c.Ingester.IngestFile(ctx, path)
					if err != nil {
						return fmt.Errorf("ingesting failed: %w", err)
					}
					state := "unchanged"
					if res.Changed {
						state = "stored"
					}
					fmt.Fprintf(out, "%s: %s (%s)\n", res.Slide.ID, res.Slide.Title, state)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories")
	return cmd
}

func invalidateCmd(g *globalFlags) *cobra.Command {
	var speed, serverURL string
	cmd := &cobra.Command{
		Use:   "invalidate <slide-id>",
		Short: "Drop cached decks of a slide (every tier unless --speed is set)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			contentID := args[0]
			if serverURL != "" {
				path := "/api/v1/flashcards/" + url.PathEscape(contentID)
				if speed != "" {
					path += "?learning_speed=" + url.QueryEscape(speed)
				}
				if err := newAPIClient(serverURL).do(ctx, http.MethodDelete, path, nil, nil); err != nil {
					return err
				}
			} else {
				err := withComponents(ctx, g, func(c *Components) error {
					if speed == "" {
						return c.Decks.InvalidateAll(ctx, contentID)
					}
					tier, err := models.ParseTier(speed)
					if err != nil {
						return err
					}
					return c.Decks.Invalidate(ctx, contentID, tier)
				})
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated: %s\n", contentID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&speed, "speed", "s", "", "only drop the deck of this learning speed")
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, "server URL (empty = open the database directly)")
	return cmd
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

type searchResult struct {
	*models.SlideSearchResponse
	Suggestion string `json:"suggestion,omitempty"`
}

func searchCmd(g *globalFlags) *cobra.Command {
	var (
		limit             int
		courseID          string
		fuzzy             bool
		serverURL, output string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search ingested slides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q := &models.SlideQuery{Query: buildSearchQuery(args), Limit: limit, CourseID: courseID, Fuzzy: fuzzy}
			if err := q.Validate(); err != nil {
				return err
			}
			var res searchResult
			if serverURL != "" {
				params := url.Values{"q": {q.Query}, "limit": {strconv.Itoa(q.Limit)}}
				if q.CourseID != "" {
					params.Set("course_id", q.CourseID)
				}
				if q.Fuzzy {
					params.Set("fuzzy", "true")
				}
				if err := newAPIClient(serverURL).do(ctx, http.MethodGet, "/api/v1/slides/search?"+params.Encode(), nil, &res); err != nil {
					return err
				}
			} else {
				err := withComponents(ctx, g, func(c *Components) error {
					var err error
					res, err = searchDirect(ctx, c, q)
					return err
				})
				if err != nil {
					return err
				}
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), res.SlideSearchResponse, res.Suggestion, cli.ParseFormat(output))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of results")
	cmd.Flags().StringVar(&courseID, "course", "", "only search slides of this course")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "tolerate typos")
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, "server URL (empty = open the index directly)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func searchDirect(ctx context.Context, c *Components, q *models.SlideQuery) (searchResult, error) {
	start := time.Now()
	hits, err := c.Index.Search(ctx, q)
	if err != nil {
		return searchResult{}, err
	}
	resp := &models.SlideSearchResponse{Query: q.Query, Hits: make([]*models.SlideHit, 0, len(hits))}
	for _, h := range hits {
		slide, err := c.Storage.GetSlide(ctx, h.ID)
		if err != nil {
			continue
		}
		resp.Hits = append(resp.Hits, &models.SlideHit{Slide: slide, Score: h.Score})
	}
	resp.Total = len(resp.Hits)
	resp.QueryTime = time.Since(start).Milliseconds()
	res := searchResult{SlideSearchResponse: resp}
	if resp.Total == 0 {
		res.Suggestion, _ = keyword.NewSpeller(c.Index, 2).Suggest(q.Query)
	}
	return res, nil
}

func statusCmd(g *globalFlags) *cobra.Command {
	var serverURL, output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show slide, course and deck cache counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var st cli.Status
			if serverURL != "" {
				var resp struct {
					Slides         int64    `json:"slides"`
					Courses        int64    `json:"courses"`
					CachedDecks    int64    `json:"cached_decks"`
					IndexedSlides  uint64   `json:"indexed_slides"`
					DiskUsageBytes int64    `json:"disk_usage_bytes"`
					WatchDirs      []string `json:"watch_directories"`
					Config         struct {
						CacheBackend  string `json:"cache_backend"`
						ModelProvider string `json:"model_provider"`
						ModelEnabled  bool   `json:"model_enabled"`
					} `json:"config"`
				}
				if err := newAPIClient(serverURL).do(ctx, http.MethodGet, "/api/v1/status", nil, &resp); err != nil {
					return err
				}
				st = cli.Status{
					Slides: resp.Slides, Courses: resp.Courses, CachedDecks: resp.CachedDecks,
					IndexedSlides: resp.IndexedSlides, DiskUsageBytes: resp.DiskUsageBytes,
					CacheBackend: resp.Config.CacheBackend, ModelProvider: resp.Config.ModelProvider,
					ModelEnabled: resp.Config.ModelEnabled, WatchDirs: resp.WatchDirs,
				}
			} else {
				cfg, logger, err := g.setup()
				if err != nil {
					return err
				}
				defer logger.Sync()
				c, err := initializeComponents(ctx, cfg, logger)
				if err != nil {
					return err
				}
				defer c.Close()
				st, err = localStatus(ctx, c)
				if err != nil {
					return err
				}
				st.CacheBackend = cfg.Cache.Backend
				st.ModelProvider = cfg.Model.Provider
				st.ModelEnabled = cfg.Model.APIKey != ""
				st.WatchDirs = cfg.Watch.Directories
				paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.BleveIndexPath)
				if n, err := storage.DiskUsageBytes(paths...); err == nil {
					st.DiskUsageBytes = n
				}
			}
			return cli.WriteStatus(cmd.OutOrStdout(), &st, cli.ParseFormat(output))
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, "server URL (empty = open the database directly)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func localStatus(ctx context.Context, c *Components) (cli.Status, error) {
	var st cli.Status
	var err error
	if st.Slides, err = c.Storage.CountSlides(ctx); err != nil {
		return st, err
	}
	if st.Courses, err = c.Storage.CountCourses(ctx); err != nil {
		return st, err
	}
	if st.CachedDecks, err = c.Storage.CountCachedDecks(ctx); err != nil {
		return st, err
	}
	if st.IndexedSlides, err = c.Index.DocCount(); err != nil {
		return st, err
	}
	return st, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fuda version %s\n", version)
		},
	}
}

// withComponents opens the local database and index for the duration of fn.
func withComponents(ctx context.Context, g *globalFlags, fn func(c *Components) error) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer c.Close()
	if err := fn(c); err != nil {
		logger.Debug("command failed", zap.Error(err))
		return err
	}
	return nil
}

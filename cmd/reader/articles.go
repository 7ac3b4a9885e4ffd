package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-news-reader/internal/app"
	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/paging"
	"github.com/samvad-hq/samvad-news-reader/internal/session"
)

func newArticlesCmd(env *cliEnv) *cobra.Command {
	var (
		sourceID string
		pages    int
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Load pages of articles for a source through a reader session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strategy == "" {
				strategy = env.cfg.PagingStrategy
			}
			st, err := session.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			if pages <= 0 {
				return fmt.Errorf("--pages must be positive")
			}

			mgr := session.NewManager(session.ManagerOptions{
				Fetcher:  app.NewNewsClient(env.cfg),
				Strategy: st,
				PageSize: env.cfg.PageSize,
				Log:      env.log,
				Parent:   cmd.Context(),
			})
			defer mgr.CloseAll()

			articles, err := loadArticles(cmd.Context(), mgr, domain.Source{ID: sourceID}, pages)
			if err != nil {
				return err
			}

			t := newTable(
				column{"#", 4},
				column{"PUBLISHED", 20},
				column{"TITLE", 60},
				column{"URL", 48},
			)
			for i, a := range articles {
				t.add(strconv.Itoa(i+1), a.PublishedAt, a.Title, a.URL)
			}
			return t.render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sourceID, "source", "", "source id, e.g. bbc-news")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().StringVar(&strategy, "strategy", "", "paging strategy: page or range (default from config)")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

// loadArticles opens a session on src and loads up to pages pages, stopping early
// at the declared total. A failed page aborts with the loader's error.
func loadArticles(ctx context.Context, mgr *session.Manager, src domain.Source, pages int) ([]domain.Article, error) {
	s, err := mgr.Create(src, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = mgr.Delete(s.ID()) }()

	for page := 1; ; page++ {
		s.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch s.State() {
		case paging.Error:
			if err := s.LastError(); err != nil {
				return nil, err
			}
			return nil, errors.New("page load failed")
		case paging.Empty:
			return nil, nil
		}

		total, known := s.Total()
		loaded := len(s.Articles())
		if page >= pages || (known && loaded >= total) {
			return s.Articles(), nil
		}

		if s.Strategy() == session.StrategyRange {
			_, err = s.RequestRange(page*s.PageSize(), s.PageSize(), nil)
		} else {
			_, err = s.Advance()
		}
		if err != nil {
			return nil, err
		}
	}
}

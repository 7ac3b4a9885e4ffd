package main

import (
	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-news-reader/internal/app"
	"github.com/samvad-hq/samvad-news-reader/pkg/newsapi"
)

func newSourcesCmd(env *cliEnv) *cobra.Command {
	var country, category string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List news sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newsapi.ParseCountry(country)
			if err != nil {
				return err
			}
			cat, err := newsapi.ParseCategory(category)
			if err != nil {
				return err
			}

			page, err := app.NewNewsClient(env.cfg).FetchSources(cmd.Context(), c, cat)
			if err != nil {
				return err
			}

			t := newTable(
				column{"ID", 24},
				column{"NAME", 28},
				column{"CATEGORY", 13},
				column{"COUNTRY", 7},
				column{"LANG", 4},
			)
			for _, src := range page.Sources {
				t.add(src.ID, src.Name, src.Category, src.Country, src.Language)
			}
			return t.render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "two-letter country code (default all)")
	cmd.Flags().StringVar(&category, "category", "", "source category (default all)")
	return cmd
}

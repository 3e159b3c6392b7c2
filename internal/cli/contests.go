package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/sites"
	"github.com/soyeahso/cpbot/internal/version"
	"github.com/spf13/cobra"
)

func newContestsCmd() *cobra.Command {
	var (
		count int
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "contests",
		Short: "Fetch and print upcoming contests without connecting to chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(cfg.Bot.TimeZone)
			if err != nil {
				return fmt.Errorf("loading time zone: %w", err)
			}

			container := sites.New(cfg.Sites, version.UserAgent(), log, nil)
			for _, tag := range tags {
				if _, ok := container.SiteName(tag); !ok {
					return fmt.Errorf("unknown site %q (enabled: %s)", tag, strings.Join(container.Tags(), ", "))
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			if err := container.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("some sites failed")
			}

			contests := container.FutureContests(count, tags)
			if len(contests) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contest found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SITE\tSTART\tLENGTH\tNAME\tURL")
			for _, c := range contests {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					c.SiteName, c.Start.In(loc).Format("02 Jan 06, 15:04"), c.Length, c.Name, c.URL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "maximum contests to print (0 = all)")
	cmd.Flags().StringSliceVar(&tags, "site", nil, "only these sites (at, cc, cf)")

	return cmd
}

package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/store"
	"github.com/soyeahso/cpbot/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cpbot configuration and stored data summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cpbot %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			token := "set"
			if config.RequireToken(&cfg) != nil {
				token = "missing"
			}
			fmt.Fprintf(out, "Discord: api=%s gateway=v%d token=%s\n", cfg.Discord.APIURL, cfg.Discord.GatewayVersion, token)
			fmt.Fprintf(out, "Bot:     name=%s triggers=%s tz=%s\n", cfg.Bot.Name, strings.Join(cfg.Bot.Triggers, ","), cfg.Bot.TimeZone)

			var enabled []string
			for name, sc := range map[string]config.SiteConfig{
				"atcoder":    cfg.Sites.AtCoder,
				"codechef":   cfg.Sites.CodeChef,
				"codeforces": cfg.Sites.Codeforces,
			} {
				if sc.Enabled {
					enabled = append(enabled, name)
				}
			}
			if len(enabled) > 0 {
				slices.Sort(enabled)
				fmt.Fprintf(out, "Sites:   %s\n", strings.Join(enabled, ", "))
			} else {
				fmt.Fprintln(out, "Sites:   (none enabled)")
			}

			if cfg.Monitor.Enabled {
				fmt.Fprintf(out, "Monitor: bind=%s port=%d\n", cfg.Monitor.Bind, cfg.Monitor.Port)
			} else {
				fmt.Fprintln(out, "Monitor: disabled")
			}

			// Store
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			fmt.Fprintf(out, "Store:   driver=%s", cfg.Store.Driver)
			st, err := store.OpenFromConfig(ctx, cfg.Store, paths.Database(), log)
			if err != nil {
				fmt.Fprintf(out, " (unavailable: %v)\n", err)
			} else {
				defer st.Close()
				users, uerr := st.LoadUsers(ctx)
				channels, cerr := st.LoadChannels(ctx)
				if uerr != nil || cerr != nil {
					fmt.Fprintf(out, " (read failed)\n")
				} else {
					profiles := 0
					for _, u := range users {
						profiles += len(u.Profiles)
					}
					fmt.Fprintf(out, " users=%d profiles=%d channels=%d\n", len(users), profiles, len(channels))
				}
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			return nil
		},
	}

	return cmd
}

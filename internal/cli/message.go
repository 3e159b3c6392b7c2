package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/version"
	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send messages through the REST API",
	}

	cmd.AddCommand(newMessageSendCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var (
		channelID string
		userID    string
		title     string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message to a channel or a user's DMs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (channelID == "") == (userID == "") {
				return fmt.Errorf("exactly one of --channel or --user is required")
			}
			text := strings.Join(args, " ")

			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if issue := config.RequireToken(&cfg); issue != nil {
				return fmt.Errorf("%s", issue)
			}

			client := discord.NewClient(discord.ClientConfig{
				Token:     cfg.Discord.Token,
				BaseURL:   cfg.Discord.APIURL,
				UserAgent: version.UserAgent(),
				Timeout:   cfg.Discord.RequestTimeout(),
			}, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if userID != "" {
				dm, err := client.CreateDM(ctx, userID)
				if err != nil {
					return fmt.Errorf("opening DM: %w", err)
				}
				channelID = dm.ID
			}

			var sent *discord.Message
			if title != "" {
				sent, err = client.SendEmbed(ctx, channelID, discord.Embed{Title: title, Description: text})
			} else {
				sent, err = client.SendText(ctx, channelID, text)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent message %s to channel %s\n", sent.ID, channelID)
			return nil
		},
	}

	cmd.Flags().StringVar(&channelID, "channel", "", "channel ID to send to")
	cmd.Flags().StringVar(&userID, "user", "", "user ID to DM")
	cmd.Flags().StringVar(&title, "title", "", "send as an embed with this title")

	return cmd
}

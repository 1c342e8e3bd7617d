package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/auditportal/auditportal/internal/chat"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/tui"
)

// newChatCmd creates the 'chat' command. Without a subcommand it opens
// the interactive chat view.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the support desk",
		Long: `Open the support chat. New messages are fetched every few seconds
(chat.poll_interval_seconds in the config file).

Commands:
  send   - Send one message
  watch  - Print the conversation and follow new messages`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			viewLog := tui.ViewLogger(nil)
			defer viewLog.Close()

			env, err := newEnv(true, viewLog)
			if err != nil {
				return err
			}
			conv := chat.NewConversation(env.client, env.session.Identity, env.logger)
			_, err = tui.Run(GetContext(), tui.NewChatModel(tui.ChatOptions{
				Context:      GetContext(),
				Conversation: conv,
				Interval:     env.cfg.ChatPollInterval,
			}))
			return err
		},
	}

	cmd.AddCommand(newChatSendCmd())
	cmd.AddCommand(newChatWatchCmd())
	return cmd
}

func newChatSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>...",
		Short: "Send a message to the support desk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			ctx := GetContext()
			conv := chat.NewConversation(env.client, env.session.Identity, env.logger)
			if _, err := conv.Ensure(ctx); err != nil {
				return withSigninHint(err)
			}
			if err := conv.Send(ctx, strings.Join(args, " ")); err != nil {
				return withSigninHint(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent (%d messages in conversation)\n", len(conv.Messages()))
			return nil
		},
	}
}

func newChatWatchCmd() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the conversation and follow new messages",
		Long: `Print the conversation history, then keep polling and print new
messages as they arrive. Stops on Ctrl+C, or after --for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			ctx := GetContext()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			conv := chat.NewConversation(env.client, env.session.Identity, env.logger)
			if _, err := conv.Ensure(ctx); err != nil {
				return withSigninHint(err)
			}
			if _, err := conv.Refresh(ctx); err != nil {
				env.logger.Warn().Err(err).Msg("could not load history")
			}
			out := cmd.OutOrStdout()
			printed := printMessages(out, conv.Messages(), 0)

			updates := env.bus.Subscribe(events.EventChatMessages)
			defer env.bus.Unsubscribe(events.EventChatMessages, updates)

			poller := chat.NewPoller(conv, env.cfg.ChatPollInterval, env.bus, env.logger)
			if err := poller.Start(ctx); err != nil {
				return err
			}
			defer poller.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-updates:
					if !ok {
						return nil
					}
					printed = printMessages(out, conv.Messages(), printed)
				}
			}
		},
	}

	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (0 = until interrupted)")
	return cmd
}

// printMessages prints msgs[from:] and returns the new count.
func printMessages(w io.Writer, msgs []models.ChatMessage, from int) int {
	if from > len(msgs) {
		from = len(msgs)
	}
	for _, m := range msgs[from:] {
		who := "Support"
		switch {
		case chat.Mine(m):
			who = "You"
		case m.Sender != "":
			who = m.Sender
		}
		if m.CreatedAt != "" {
			fmt.Fprintf(w, "[%s] ", m.CreatedAt)
		}
		fmt.Fprintf(w, "%s: %s\n", who, m.Body)
	}
	return len(msgs)
}

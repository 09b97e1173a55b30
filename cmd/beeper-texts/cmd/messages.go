package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

var (
	messagesLimit  int
	messagesBefore string
	messagesAfter  string
)

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Show messages from one chat, newest first",
	Long: `Show messages from a chat. Chat IDs are printed by list-chats and
search-chats.

--before and --after accept ISO-8601 dates or timestamps.

Examples:
  beeper-texts messages '!abcdef:beeper.local'
  beeper-texts messages '!abcdef:beeper.local' --after 2024-06-01 --limit 200`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for flag, v := range map[string]string{"before": messagesBefore, "after": messagesAfter} {
			if v != "" {
				if _, ok := query.ParseBound(v); !ok {
					return fmt.Errorf("invalid --%s %q: use YYYY-MM-DD or an ISO-8601 timestamp", flag, v)
				}
			}
		}

		msgs, err := newEngine().GetMessages(cmd.Context(), query.GetMessagesOptions{
			ChatID: args[0],
			Limit:  messagesLimit,
			Before: messagesBefore,
			After:  messagesAfter,
		})
		if err != nil {
			return archiveHint(fmt.Errorf("get messages: %w", err))
		}

		if wantJSON() {
			return writeJSON(os.Stdout, msgs)
		}
		if len(msgs) == 0 {
			fmt.Println("No messages found.")
			return nil
		}
		return printMessagesTable(os.Stdout, msgs)
	},
}

func init() {
	rootCmd.AddCommand(messagesCmd)
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 50, "Maximum number of messages")
	messagesCmd.Flags().StringVar(&messagesBefore, "before", "", "Only messages before this time")
	messagesCmd.Flags().StringVar(&messagesAfter, "after", "", "Only messages after this time")
	addJSONFlag(messagesCmd)
}

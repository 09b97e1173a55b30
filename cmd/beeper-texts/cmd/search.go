package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

var (
	searchChatID    string
	searchLimit     int
	searchNoContext bool

	searchChatsLabel string
	searchChatsLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search message contents across chats",
	Long: `Search message text for a case-insensitive substring. Each match is shown
with the conversation around it unless --no-context is given.

All arguments are joined into one search string.

Examples:
  beeper-texts search dinner on friday
  beeper-texts search invoice --chat '!abcdef:beeper.local' --no-context`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := strings.TrimSpace(strings.Join(args, " "))
		if q == "" {
			return fmt.Errorf("empty search query")
		}

		results, err := newEngine().SearchMessages(cmd.Context(), query.SearchOptions{
			Query:          q,
			ChatID:         searchChatID,
			Limit:          searchLimit,
			IncludeContext: !searchNoContext,
		})
		if err != nil {
			return archiveHint(fmt.Errorf("search messages: %w", err))
		}

		if wantJSON() {
			return writeJSON(os.Stdout, results)
		}
		if len(results) == 0 {
			fmt.Println("No messages found.")
			return nil
		}
		return printResults(os.Stdout, results)
	},
}

var searchChatsCmd = &cobra.Command{
	Use:   "search-chats <name>",
	Short: "Find chats by name",
	Long: `Find chats whose display name contains the given text, ignoring case.

Examples:
  beeper-texts search-chats family
  beeper-texts search-chats "book club" --label archive`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, ok := query.ParseLabel(searchChatsLabel)
		if !ok {
			return fmt.Errorf("invalid label %q (want one of inbox, archive, all, favourite, unread)", searchChatsLabel)
		}

		chats, err := newEngine().SearchChats(cmd.Context(), query.SearchChatsOptions{
			Query: strings.Join(args, " "),
			Label: label,
			Limit: searchChatsLimit,
		})
		if err != nil {
			return archiveHint(fmt.Errorf("search chats: %w", err))
		}

		if wantJSON() {
			return writeJSON(os.Stdout, chats)
		}
		if len(chats) == 0 {
			fmt.Println("No chats found.")
			return nil
		}
		return printChatsTable(os.Stdout, chats)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchChatID, "chat", "", "Only search this chat ID")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 25, "Maximum number of matches")
	searchCmd.Flags().BoolVar(&searchNoContext, "no-context", false, "Show only the matching messages")
	addJSONFlag(searchCmd)

	rootCmd.AddCommand(searchChatsCmd)
	searchChatsCmd.Flags().StringVar(&searchChatsLabel, "label", "all", "Sidebar label to search within")
	searchChatsCmd.Flags().IntVarP(&searchChatsLimit, "limit", "n", 25, "Maximum number of chats")
	addJSONFlag(searchChatsCmd)
}

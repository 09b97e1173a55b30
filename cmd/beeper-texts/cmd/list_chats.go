package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

var (
	listChatsLabel        string
	listChatsSort         string
	listChatsLimit        int
	listChatsRecent       int
	listChatsParticipants int
	listChatsLowPriority  bool
)

var listChatsCmd = &cobra.Command{
	Use:   "list-chats",
	Short: "List chats the way the Beeper sidebar shows them",
	Long: `List chats for a sidebar label with platform, unread state and activity.

Labels:
  inbox      Chats Beeper would show in the inbox (default)
  archive    Archived chats
  favourite  Chats tagged as favourites
  unread     Chats marked unread
  all        Everything

Examples:
  beeper-texts list-chats
  beeper-texts list-chats --label archive --sort name
  beeper-texts list-chats --label all --include-low-priority --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		label, ok := query.ParseLabel(listChatsLabel)
		if !ok {
			return fmt.Errorf("invalid label %q (want one of inbox, archive, all, favourite, unread)", listChatsLabel)
		}
		sort := query.SortKey(listChatsSort)
		switch sort {
		case query.SortLatestMessage, query.SortLastActive, query.SortName:
		default:
			return fmt.Errorf("invalid sort %q (want latest_message, last_active or name)", listChatsSort)
		}

		chats, err := newEngine().ListChats(cmd.Context(), query.ListChatsOptions{
			Label:              label,
			Sort:               sort,
			Limit:              listChatsLimit,
			RecentMessages:     listChatsRecent,
			MaxParticipants:    listChatsParticipants,
			IncludeLowPriority: listChatsLowPriority,
		})
		if err != nil {
			return archiveHint(fmt.Errorf("list chats: %w", err))
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
	rootCmd.AddCommand(listChatsCmd)
	listChatsCmd.Flags().StringVar(&listChatsLabel, "label", "inbox", "Sidebar label to list")
	listChatsCmd.Flags().StringVar(&listChatsSort, "sort", "latest_message", "Sort order: latest_message, last_active, name")
	listChatsCmd.Flags().IntVarP(&listChatsLimit, "limit", "n", 25, "Maximum number of chats")
	listChatsCmd.Flags().IntVar(&listChatsRecent, "recent", 3, "Recent messages to include per chat (JSON only)")
	listChatsCmd.Flags().IntVar(&listChatsParticipants, "participants", 5, "Participant names to include per group chat (JSON only)")
	listChatsCmd.Flags().BoolVar(&listChatsLowPriority, "include-low-priority", false, "Include low priority chats")
	addJSONFlag(listChatsCmd)
}

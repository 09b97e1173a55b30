package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

var (
	personLimit    int
	personPlatform string
	personType     string
	personDays     int
	personContext  bool
)

var personCmd = &cobra.Command{
	Use:   "person <name>",
	Short: "Show messages a contact sent, grouped by chat",
	Long: `Show messages sent by everyone whose resolved name contains <name>,
grouped by chat with the most recent chat first.

Examples:
  beeper-texts person alice
  beeper-texts person "Bob Jones" --platform whatsapp --type dm --days 30`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatType := query.ChatType(personType)
		switch chatType {
		case query.ChatTypeAll, query.ChatTypeDM, query.ChatTypeGroup:
		default:
			return fmt.Errorf("invalid --type %q (want all, dm or group)", personType)
		}
		if personDays < 0 {
			return fmt.Errorf("--days must not be negative")
		}

		results, err := newEngine().MessagesByPerson(cmd.Context(), query.PersonOptions{
			Name:           strings.Join(args, " "),
			Limit:          personLimit,
			Platform:       personPlatform,
			ChatType:       chatType,
			DaysBack:       personDays,
			IncludeContext: personContext,
		})
		if err != nil {
			return archiveHint(fmt.Errorf("messages by person: %w", err))
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

func init() {
	rootCmd.AddCommand(personCmd)
	personCmd.Flags().IntVarP(&personLimit, "limit", "n", 50, "Maximum messages per chat")
	personCmd.Flags().StringVar(&personPlatform, "platform", "", "Only chats on this platform (see 'platforms')")
	personCmd.Flags().StringVar(&personType, "type", "all", "Chat type: all, dm, group")
	personCmd.Flags().IntVar(&personDays, "days", 0, "Only messages from the last N days (0 = no limit)")
	personCmd.Flags().BoolVar(&personContext, "context", false, "Include surrounding messages")
	addJSONFlag(personCmd)
}

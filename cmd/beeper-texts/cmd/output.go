package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

// jsonOut is shared by every data command's --json flag.
var jsonOut bool

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON (default when stdout is not a terminal)")
}

// wantJSON reports whether output should be JSON: requested explicitly, or
// stdout is piped.
func wantJSON() bool {
	if jsonOut {
		return true
	}
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func isArchiveMissing(err error) bool {
	return errors.Is(err, archive.ErrArchiveNotFound)
}

// truncate fits s within maxWidth terminal cells, flattening whitespace
// that would break table rows.
func truncate(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.NewReplacer("\n", " ", "\t", " ").Replace(s)

	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// shortTime trims an RFC 3339 timestamp to minute precision for tables.
func shortTime(ts string) string {
	if len(ts) >= 16 {
		return strings.Replace(ts[:16], "T", " ", 1)
	}
	return ts
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printChatsTable(w io.Writer, chats []query.Chat) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tPLATFORM\tLAST ACTIVITY\tMESSAGES\tUNREAD\tCHAT ID")
	for _, c := range chats {
		unread := ""
		if c.Unread {
			unread = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncate(c.Name, 40),
			c.Platform,
			shortTime(c.LastActivity),
			c.TotalMessages,
			unread,
			c.ChatID,
		)
	}
	return tw.Flush()
}

func printMessagesTable(w io.Writer, msgs []query.Message) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tFROM\tTYPE\tTEXT")
	for _, m := range msgs {
		text := m.Text
		if n := len(m.Attachments); n > 0 {
			text = fmt.Sprintf("%s [%d attachment(s)]", text, n)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			shortTime(m.Timestamp),
			truncate(m.SenderName, 24),
			m.MessageType,
			truncate(text, 80),
		)
	}
	return tw.Flush()
}

// printResults renders grouped results one chat block at a time.
func printResults(w io.Writer, results []query.ChatSearchResult) error {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s (%s) %s\n", r.Chat.Name, r.Chat.Platform, r.Chat.ChatID)
		if err := printMessagesTable(w, r.Messages); err != nil {
			return err
		}
	}
	return nil
}

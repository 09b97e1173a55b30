package cmd

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/fileutil"
	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

var (
	attachmentRaw bool
	attachmentOut string
)

var attachmentCmd = &cobra.Command{
	Use:   "attachment <uri>",
	Short: "Resolve a beeper://attachment URI",
	Long: `Resolve an attachment URI printed by messages or search.

Images are downscaled and re-encoded as JPEG unless --raw is given. Images
and audio are returned inline; other files are reported by path. Use --out
to write inline content to a file.

Examples:
  beeper-texts attachment 'beeper://attachment/$event:beeper.com/0'
  beeper-texts attachment 'beeper://attachment/$event:beeper.com/0' --raw --out photo.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := newEngine().ResolveAttachment(cmd.Context(), args[0], !attachmentRaw)
		if content.Error != "" {
			if wantJSON() {
				_ = writeJSON(os.Stdout, content)
			}
			return fmt.Errorf("resolve attachment: %s", content.Error)
		}

		if attachmentOut != "" {
			return saveAttachment(content, attachmentOut)
		}
		if wantJSON() {
			return writeJSON(os.Stdout, content)
		}
		return describeAttachment(os.Stdout, content)
	},
}

// saveAttachment writes inline content, or copies the referenced file,
// readable only by the current user.
func saveAttachment(c query.AttachmentContent, path string) error {
	var data []byte
	switch {
	case c.Base64 != "":
		var err error
		data, err = base64.StdEncoding.DecodeString(c.Base64)
		if err != nil {
			return fmt.Errorf("decode attachment: %w", err)
		}
	case c.Filepath != "":
		var err error
		data, err = os.ReadFile(c.Filepath)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
	default:
		return fmt.Errorf("attachment has no content")
	}
	if err := fileutil.WritePrivate(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(data), path)
	return nil
}

func describeAttachment(w io.Writer, c query.AttachmentContent) error {
	fmt.Fprintf(w, "Type:      %s\n", c.Type)
	fmt.Fprintf(w, "MIME type: %s\n", c.MimeType)
	if c.Filename != "" {
		fmt.Fprintf(w, "Filename:  %s\n", c.Filename)
	}
	if c.Filepath != "" {
		fmt.Fprintf(w, "Path:      %s\n", c.Filepath)
	}
	if c.Base64 != "" {
		fmt.Fprintf(w, "Inline:    %d bytes (use --out to save, --json for base64)\n", base64.StdEncoding.DecodedLen(len(c.Base64)))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(attachmentCmd)
	attachmentCmd.Flags().BoolVar(&attachmentRaw, "raw", false, "Return images unmodified")
	attachmentCmd.Flags().StringVarP(&attachmentOut, "out", "o", "", "Write the attachment to this file")
	addJSONFlag(attachmentCmd)
}

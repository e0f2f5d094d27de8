// Package cli implements the blocks command, an offline tool around the
// article content codec and the publication workflow.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/editor/markdown"
	"github.com/todaysafrica/newsroom/internal/editor/workflow"
	"github.com/todaysafrica/newsroom/internal/models"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blocks",
		Short: "article content block tool",
		Example: `blocks serialize article.html --drop-unresolved
blocks deserialize blocks.json --media-base-url https://cdn.example.com
blocks markdown draft.md --blocks
blocks actions --status APPROVED --role ADMIN`,
		SilenceUsage: true,
	}
	root.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	root.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false

	root.AddCommand(serializeCmd())
	root.AddCommand(deserializeCmd())
	root.AddCommand(markdownCmd())
	root.AddCommand(actionsCmd())
	return root
}

type blocksDocument struct {
	Blocks []models.ContentBlock `json:"blocsContenu"`
}

func serializeCmd() *cobra.Command {
	var dropUnresolved bool

	command := &cobra.Command{
		Use:   "serialize [file]",
		Short: "convert editor markup into content blocks",
		Long:  "Reads editor markup from file, or stdin when file is omitted or \"-\", and prints the ordered content blocks as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			policy := codec.RejectUnresolved
			if dropUnresolved {
				policy = codec.DropUnresolved
			}
			blocks, err := codec.Serialize(string(src), codec.WithUnresolvedPolicy(policy))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), blocksDocument{Blocks: blocks})
		},
	}
	command.Flags().BoolVar(&dropUnresolved, "drop-unresolved", false, "omit images that still point at a local preview")
	return command
}

func deserializeCmd() *cobra.Command {
	var mediaBaseURL string

	command := &cobra.Command{
		Use:   "deserialize [file]",
		Short: "convert content blocks into editor markup",
		Long:  "Reads a JSON block list, bare or wrapped in {\"blocsContenu\": [...]}, and prints the editor markup.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			blocks, err := decodeBlocks(src)
			if err != nil {
				return err
			}
			markup := codec.Deserialize(blocks, codec.WithMediaBaseURL(mediaBaseURL))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), markup)
			return err
		},
	}
	command.Flags().StringVar(&mediaBaseURL, "media-base-url", "", "base URL for relative media paths")
	return command
}

func markdownCmd() *cobra.Command {
	var asBlocks bool

	command := &cobra.Command{
		Use:   "markdown [file]",
		Short: "convert Markdown into editor markup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			markup, err := markdown.ToMarkup(string(src))
			if err != nil {
				return err
			}
			if !asBlocks {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), markup)
				return err
			}
			blocks, err := codec.Serialize(markup)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), blocksDocument{Blocks: blocks})
		},
	}
	command.Flags().BoolVar(&asBlocks, "blocks", false, "print content blocks instead of markup")
	return command
}

func actionsCmd() *cobra.Command {
	var status string
	var role string

	command := &cobra.Command{
		Use:     "actions",
		Short:   "list workflow actions offered from a status",
		Example: "blocks actions --status PENDING_REVIEW --role REDACTEUR",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseStatus(status)
			if err != nil {
				return err
			}
			r := models.Role(strings.ToUpper(strings.TrimSpace(role)))
			if r != models.RoleAdmin && r != models.RoleWriter {
				return fmt.Errorf("unknown role %q", role)
			}

			out := cmd.OutOrStdout()
			offered := workflow.Offered(s, r)
			if len(offered) == 0 {
				_, err = fmt.Fprintln(out, "no action available")
				return err
			}
			for _, a := range offered {
				t, err := workflow.Lookup(s, a)
				if err != nil {
					return err
				}
				target := string(t.To)
				if t.Terminal {
					target = "(deleted)"
				}
				if _, err := fmt.Fprintf(out, "%-10s -> %s\n", a, target); err != nil {
					return err
				}
			}
			return nil
		},
	}
	command.Flags().StringVarP(&status, "status", "s", "", "article status")
	command.Flags().StringVarP(&role, "role", "r", string(models.RoleWriter), "user role")
	_ = command.MarkFlagRequired("status")
	return command
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func decodeBlocks(src []byte) ([]models.ContentBlock, error) {
	trimmed := bytes.TrimSpace(src)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var blocks []models.ContentBlock
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return nil, fmt.Errorf("decode blocks: %w", err)
		}
		return blocks, nil
	}
	var doc blocksDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	return doc.Blocks, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

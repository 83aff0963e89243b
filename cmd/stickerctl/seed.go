package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/avenida-stickers/internal/models"
)

// StickerCreator adds one image to the catalog.
type StickerCreator interface {
	Create(ctx context.Context, image []byte, cats []string) (*models.Sticker, error)
}

var seedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func seedCommand(c *cli) *cobra.Command {
	var cats []string

	cmd := &cobra.Command{
		Use:   "seed <dir>",
		Short: "Import every image in a directory into the catalog",
		Long:  `Each image is optimized and stored like an admin upload and gets the next numeric display id. Files that fail are reported and skipped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.InitializeDefaults(cmd.Context()); err != nil {
				return err
			}

			n, err := seedDirectory(cmd.Context(), args[0], cats, a.Catalog, cmd.OutOrStdout(), c.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done! Imported %d stickers\n", n)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&cats, "categories", nil, "categories to tag every imported sticker with (comma separated)")
	return cmd
}

// seedDirectory imports the images of dir in file name order and returns
// how many were created. Unsupported files are skipped.
func seedDirectory(ctx context.Context, dir string, cats []string, creator StickerCreator, out io.Writer, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read sticker directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !seedExtensions[strings.ToLower(filepath.Ext(name))] {
			logger.Debug("skipping unsupported file", slog.String("file", name))
			continue
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("failed to read file", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}

		created, err := creator.Create(ctx, data, cats)
		if err != nil {
			logger.Warn("failed to import sticker", slog.String("file", name), slog.String("error", err.Error()))
			fmt.Fprintf(out, "  failed: %s: %v\n", name, err)
			continue
		}

		count++
		fmt.Fprintf(out, "Imported: %s -> %s\n", name, created.DisplayID)
	}
	return count, nil
}

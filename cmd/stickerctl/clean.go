package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

type ImageLister interface {
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, imagePath string) error
}

// ImageReferences lists the image paths a record store points at.
type ImageReferences interface {
	ImagePaths(ctx context.Context) ([]string, error)
}

func cleanUploadsCommand(c *cli) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean-uploads",
		Short: "Delete stored images no sticker refers to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := cleanUploads(cmd.Context(), a.Images, []ImageReferences{a.CatalogRepo, a.PersonalizedRepo}, dryRun, cmd.OutOrStdout(), c.logger)
			if err != nil {
				return err
			}
			verb := "Deleted"
			if dryRun {
				verb = "Would delete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d orphaned images\n", verb, removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only list the files that would be deleted")
	return cmd
}

// cleanUploads deletes every stored image that none of refs mentions and
// returns how many were (or, with dryRun, would be) removed.
func cleanUploads(ctx context.Context, images ImageLister, refs []ImageReferences, dryRun bool, out io.Writer, logger *slog.Logger) (int, error) {
	referenced := make(map[string]struct{})
	for _, r := range refs {
		paths, err := r.ImagePaths(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list referenced images: %w", err)
		}
		for _, p := range paths {
			referenced[p] = struct{}{}
		}
	}

	stored, err := images.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored images: %w", err)
	}

	removed := 0
	for _, p := range stored {
		if _, ok := referenced[p]; ok {
			continue
		}
		if dryRun {
			fmt.Fprintln(out, "orphan:", p)
			removed++
			continue
		}
		if err := images.Delete(ctx, p); err != nil {
			logger.Warn("failed to delete orphaned image", slog.String("image_path", p), slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintln(out, "deleted:", p)
		removed++
	}
	return removed, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/heif"
)

var readCmd = &cobra.Command{
	Use:   "read [file]",
	Short: "Print the primary item and item list of a HEIF file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := heif.Open(f)
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	log.Info("opened heif file", "path", args[0])

	primary, err := r.PrimaryItem(0)
	if err != nil {
		log.Warn("no primary item", "error", err)
	} else {
		fmt.Printf("primary item: %d\n", primary)
	}

	items, err := r.GetItemListByType(0, "hvc1")
	if err != nil {
		return err
	}
	for _, itemID := range items {
		props, err := r.GetProperties(0, itemID)
		if err != nil {
			log.Warn("reading properties", "item", itemID, "error", err)
			continue
		}
		for _, p := range props {
			if ispe, ok := p.(*bmff.ImageSpatialExtentsProperty); ok {
				fmt.Printf("item %d: %dx%d\n", itemID, ispe.ImageWidth, ispe.ImageHeight)
			}
		}
	}
	return nil
}

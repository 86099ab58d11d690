package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heifbox/heifbox/bmff"
	"github.com/heifbox/heifbox/writer"
)

var writeCmd = &cobra.Command{
	Use:   "write [hevc-input] [heic-output] [width] [height]",
	Short: "Pack a raw HEVC bitstream into a single-image HEIF file",
	Args:  cobra.ExactArgs(4),
	RunE:  runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	width, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("width: %w", err)
	}
	height, err := strconv.ParseUint(args[3], 10, 32)
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}

	cfg := &writer.Config{
		MajorBrand:       settings.MajorBrand,
		CompatibleBrands: settings.CompatibleBrands,
		Items: []writer.ItemConfig{
			{
				ItemType: "hvc1",
				Data:     data,
				Properties: []bmff.Property{
					&bmff.ImageSpatialExtentsProperty{ImageWidth: uint32(width), ImageHeight: uint32(height)},
				},
				Essential: []bool{true},
				Primary:   true,
			},
		},
	}

	out, err := writer.New(cfg).Write()
	if err != nil {
		return fmt.Errorf("writing heif file: %w", err)
	}
	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		return err
	}
	log.Info("wrote heif file", "path", args[1], "bytes", len(out))
	return nil
}

package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-edit-mcp/internal/form"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// editFlags maps command-line flags onto form fields.
var editFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"resize", form.FieldDoResize, "resize to --width x --height (1 or true)"},
	{"width", form.FieldWidth, "target width (default 512)"},
	{"height", form.FieldHeight, "target height (default 512)"},
	{"keep-ratio", form.FieldKeepRatio, "keep aspect ratio using --fit (otherwise stretch)"},
	{"fit", form.FieldFitMode, "contain, cover or fill"},
	{"transparent", form.FieldMakeTransparent, "make the background transparent"},
	{"strategy", form.FieldBackgroundStrategy, "background strategy (default from config)"},
	{"brightness", form.FieldBrightness, "-50..50"},
	{"saturation", form.FieldSaturation, "-50..50"},
	{"contrast", form.FieldContrast, "-50..50"},
	{"hue", form.FieldHue, "-180..180 degrees"},
	{"line-strength", form.FieldLineStrength, "-50..50, positive darkens linework"},
	{"line-color", form.FieldLineColor, "original, brown, navy or white"},
	{"text", form.FieldOverlayText, "caption text"},
	{"text-size", form.FieldTextSize, "caption size in pixels (default 32)"},
	{"text-color", form.FieldTextColor, "white, black or brown"},
	{"text-position", form.FieldTextPosition, "top or bottom"},
}

func newEditCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "edit [flags] IMAGE...",
		Short: "Edit image files and write PNG results",
		Example: `  image-edit edit --transparent --text "Sale" --out out/ a.jpg b.png
  image-edit edit --resize 1 --width 800 --height 600 --keep-ratio 1 --fit cover photo.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := url.Values{}
			for _, f := range editFlags {
				if cmd.Flags().Changed(f.flag) {
					v, _ := cmd.Flags().GetString(f.flag)
					values.Set(f.field, v)
				}
			}
			params := form.FromValues(values).Params()

			inputs := make([][]byte, len(args))
			for i, path := range args {
				data, err := edit.ReadFile(path)
				if err != nil {
					return err
				}
				inputs[i] = data
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.pipeline.Run(cmd.Context(), inputs, params)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			out := cmd.OutOrStdout()
			for i, img := range result.Images {
				if !img.OK() {
					fmt.Fprintf(out, "%s: FAILED: %v\n", args[i], img.Err)
					continue
				}
				dst := outputPath(outDir, args[i], i)
				if err := os.WriteFile(dst, img.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", dst, err)
				}
				fmt.Fprintf(out, "%s -> %s (%dx%d)\n", args[i], dst, img.Width, img.Height)
			}

			if n := result.Failed(); n > 0 {
				return fmt.Errorf("%d of %d images failed", n, len(result.Images))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "edited", "output directory")
	for _, f := range editFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	return cmd
}

// outputPath names the result for input number index. The index prefix keeps
// same-named inputs from different directories apart.
func outputPath(dir, input string, index int) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, fmt.Sprintf("%03d-%s.png", index, base))
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/verse91/clipy/internal/clip"
	"github.com/verse91/clipy/internal/formatter"
	"github.com/verse91/clipy/internal/handshake"
	"github.com/verse91/clipy/internal/shared"
	"github.com/urfave/cli/v3"
)

type checkResult struct {
	URL     string       `json:"url"`
	Verdict string       `json:"verdict"`
	Notice  clip.Notice  `json:"notice"`
	Options clip.Options `json:"options"`
}

// Check classifies a link the way the chat box does. Nothing is sent anywhere.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	value := cmd.StringArg("url")
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: url is required", shared.ErrMissingArgument)
	}

	quality, ok := clip.ParseQuality(cmd.String("quality"))
	if !ok {
		return fmt.Errorf("%w: unknown quality %q", shared.ErrInvalidArgument, cmd.String("quality"))
	}
	opts := clip.DefaultOptions().WithQuality(quality)
	opts.SponsorBlock = cmd.Bool("sponsorblock")
	opts = opts.WithThumbnail(cmd.Bool("thumbnail"))

	verdict := clip.Classify(value)
	result := checkResult{URL: value, Verdict: verdict.String(), Notice: clip.NoticeFor(verdict), Options: opts}

	if cmd.Bool("json") {
		return r.writeJSON(result, false)
	}

	mark := "✗"
	if verdict == clip.Accepted {
		mark = "✓"
	}
	r.writePlain("%s %s\n", mark, result.Notice.Text)
	if verdict == clip.Accepted {
		r.writePlain("  Quality: %s\n", opts.Quality.Label())
		r.writePlain("  SponsorBlock: %t\n", opts.SponsorBlock)
		r.writePlain("  Thumbnail: %t\n", opts.Thumbnail)
	}
	return nil
}

// Terms prints the Terms & Conditions.
func (r *Runner) Terms(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	data, err := formatter.ExportTerms(handshake.Terms, format)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

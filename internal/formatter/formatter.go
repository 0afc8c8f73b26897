// package formatter renders the credit plans and the terms text as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/handshake"
)

// Format names an output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat accepts the format names and a few common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "", "text", "txt", "plain":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension is the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// ExportPlansToCSV converts plans to CSV with columns: ID, Credits, Price, Original Price, Discount, Popular, Checkout URL
func ExportPlansToCSV(plans []credits.Plan, checkoutURL string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Credits", "Price", "Original Price", "Discount", "Popular", "Checkout URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range plans {
		record := []string{
			p.ID,
			strconv.Itoa(p.Credits),
			p.PriceLabel(),
			credits.FormatPrice(p.OriginalPrice),
			strconv.Itoa(p.Discount),
			strconv.FormatBool(p.Popular),
			credits.CheckoutURL(checkoutURL, p),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportPlansToMarkdown renders the drawer as a Markdown document
func ExportPlansToMarkdown(plans []credits.Plan, checkoutURL string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", credits.DrawerTitle))
	for _, f := range credits.Features {
		buf.WriteString(fmt.Sprintf("- %s\n", f))
	}
	buf.WriteString("\n## Plans\n\n")

	for i, p := range plans {
		line := fmt.Sprintf("%d. **%d credits** %s", i+1, p.Credits, p.PriceLabel())
		if was := p.OriginalPriceLabel(); was != "" {
			line += fmt.Sprintf(" ~~%s~~ %s", was, p.DiscountLabel())
		}
		if p.Popular {
			line += " (most popular)"
		}
		buf.WriteString(fmt.Sprintf("%s [%s](%s)\n", line, p.BuyLabel(), credits.CheckoutURL(checkoutURL, p)))
	}

	return buf.Bytes(), nil
}

// ExportPlansToText converts plans to an aligned plain text table
func ExportPlansToText(plans []credits.Plan) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", credits.DrawerTitle))
	buf.WriteString(fmt.Sprintf("Plans: %d\n\n", len(plans)))

	for _, p := range plans {
		marker := " "
		if p.Popular {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-8s %4d credits  %7s", marker, p.ID, p.Credits, p.PriceLabel())
		if off := p.DiscountLabel(); off != "" {
			line += fmt.Sprintf("  (was %s, %s)", p.OriginalPriceLabel(), off)
		}
		buf.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	return buf.Bytes(), nil
}

type planJSON struct {
	credits.Plan
	CheckoutURL string `json:"checkout_url"`
}

// ExportPlansToJSON returns the plans with their checkout links as indented JSON
func ExportPlansToJSON(plans []credits.Plan, checkoutURL string) ([]byte, error) {
	out := make([]planJSON, len(plans))
	for i, p := range plans {
		out[i] = planJSON{Plan: p, CheckoutURL: credits.CheckoutURL(checkoutURL, p)}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plans: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportPlans renders plans in format.
func ExportPlans(plans []credits.Plan, format Format, checkoutURL string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportPlansToCSV(plans, checkoutURL)
	case FormatMarkdown:
		return ExportPlansToMarkdown(plans, checkoutURL)
	case FormatText:
		return ExportPlansToText(plans)
	case FormatJSON:
		return ExportPlansToJSON(plans, checkoutURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ExportTerms renders the terms and conditions as Markdown or plain text.
func ExportTerms(sections []handshake.TermsSection, format Format) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatMarkdown:
		buf.WriteString("# Terms & Conditions\n")
		for _, s := range sections {
			buf.WriteString(fmt.Sprintf("\n## %s\n\n", s.Title))
			for _, l := range s.Lines() {
				switch {
				case l.Blank:
					buf.WriteString("\n")
				case l.Bullet:
					buf.WriteString("- " + l.Text + "\n")
				default:
					buf.WriteString(l.Text + "\n")
				}
			}
		}
		buf.WriteString(fmt.Sprintf("\n_%s_\n", handshake.AcceptLabel))
	case FormatText:
		for i, s := range sections {
			if i > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(s.Title + "\n")
			for _, l := range s.Lines() {
				switch {
				case l.Blank:
					buf.WriteString("\n")
				case l.Bullet:
					buf.WriteString("  • " + l.Text + "\n")
				default:
					buf.WriteString(l.Text + "\n")
				}
			}
		}
	default:
		return nil, fmt.Errorf("%w: terms cannot be exported as %q", ErrUnknownFormat, format)
	}

	return buf.Bytes(), nil
}

// WritePlansExport writes the plans to path, defaulting to plans.{ext}, and returns the path written.
func WritePlansExport(plans []credits.Plan, format Format, checkoutURL, path string) (string, error) {
	if path == "" {
		path = "plans." + format.Extension()
	}

	data, err := ExportPlans(plans, format, checkoutURL)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

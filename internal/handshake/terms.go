package handshake

import "strings"

// SupportEmail is linked wherever it appears in the terms.
const SupportEmail = "versedev.store@proton.me"

// AcceptLabel is the text next to the terms checkbox.
const AcceptLabel = "I have read and agree to the Terms & Conditions."

// TermsSection is one titled block of the terms shown before sign-in.
type TermsSection struct {
	Title   string
	Content string
}

// Line is one rendered line of a terms section.
type Line struct {
	Text   string
	Bullet bool
	Blank  bool
}

// Terms are the terms and conditions accepted before signing in.
var Terms = []TermsSection{
	{
		Title: "1. YouTube Content & Copyright",
		Content: "By using this service to process or download video content:\n\n" +
			"- You acknowledge that using content without proper rights may violate copyright laws and the terms of service of platforms like YouTube.\n" +
			"- You confirm that you either own the rights to the content, or the content is in the public domain or properly licensed for your intended use.\n" +
			"- We do not host, distribute, or store any copyrighted material. Users are solely responsible for any copyright violations or legal consequences.\n" +
			"- We disclaim all responsibility for how the downloaded content is used after processing.",
	},
	{
		Title:   "2. Subscription Terms",
		Content: "Your subscription will continue until terminated by you. You may cancel at any time from your account settings.",
	},
	{
		Title:   "3. Payment Terms",
		Content: "Payments are processed securely through our designated payment provider. Subscriptions automatically renew unless canceled before the billing cycle ends.",
	},
	{
		Title:   "4. Usage Rights",
		Content: "This service is intended for personal, non-commercial use only. Unauthorized commercial use is strictly prohibited.",
	},
	{
		Title:   "5. Refund Policy",
		Content: "Refunds are handled on a case-by-case basis. Please contact support at " + SupportEmail + " within 14 days of your purchase to request a refund.",
	},
	{
		Title:   "6. Service Availability",
		Content: "We strive for 99.9% uptime, but do not guarantee uninterrupted access. We reserve the right to modify, suspend, or discontinue any features or functionality at any time without notice.",
	},
	{
		Title:   "7. Limitation of Liability",
		Content: `This service is provided "as is", with no warranties or guarantees of any kind. We shall not be held liable for any direct or indirect damages resulting from your use of the service.`,
	},
}

// Lines splits the section content. Lines starting with "- " become bullets without the marker.
func (s TermsSection) Lines() []Line {
	raw := strings.Split(s.Content, "\n")
	out := make([]Line, 0, len(raw))
	for _, l := range raw {
		switch {
		case l == "":
			out = append(out, Line{Blank: true})
		case strings.HasPrefix(l, "- "):
			out = append(out, Line{Text: l[2:], Bullet: true})
		default:
			out = append(out, Line{Text: l})
		}
	}
	return out
}

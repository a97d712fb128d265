package resolver

import (
	"regexp"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/mr-tron/base58"
)

// Extraction confidence per source. Structured link fields outrank free
// text, and a bare base58 scrape is a last resort.
const (
	confEmbedURL    = 0.9
	confEmbedTitle  = 0.8
	confEmbedDesc   = 0.8
	confEmbedField  = 0.7
	confEmbedFooter = 0.6
	confButton      = 0.85
	confContentURL  = 0.5
	confBase58Scan  = 0.3
)

// Known platform URL patterns. The capture group is the token-shaped
// path segment.
var (
	solscanRe     = regexp.MustCompile(`solscan\.io/token/([1-9A-HJ-NP-Za-km-z]{32,44})`)
	birdeyeRe     = regexp.MustCompile(`birdeye\.so/token/(?:SOLANA/)?([1-9A-HJ-NP-Za-km-z]{32,44})`)
	pumpFunRe     = regexp.MustCompile(`pump\.fun/coin/([1-9A-HJ-NP-Za-km-z]{32,44})`)
	dexscreenerRe = regexp.MustCompile(`dexscreener\.com/solana/([1-9A-HJ-NP-Za-km-z]{32,44})`)

	queryParamRe = regexp.MustCompile(`[?&](?:token|address|mint)=([1-9A-HJ-NP-Za-km-z]{32,44})`)
	base58Re     = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)
	httpURLRe    = regexp.MustCompile(`https?://\S+`)
)

// candidate is one extracted mint possibility before ledger verification.
type candidate struct {
	Mint       string
	SourceURL  string
	Source     domain.SourceType
	Confidence float64
	// MaybePair marks dexscreener path segments, which can be a pair
	// address instead of a mint and need a market lookup.
	MaybePair bool
}

// extractCandidates pulls every mint candidate out of a message payload,
// in source priority order. The payload is the raw Discord-shaped JSON
// object.
func extractCandidates(payload map[string]any) []candidate {
	var out []candidate

	if embeds, ok := payload["embeds"].([]any); ok {
		for _, e := range embeds {
			embed, ok := e.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, extractFromEmbed(embed)...)
		}
	}

	if components, ok := payload["components"].([]any); ok {
		out = append(out, extractFromComponents(components)...)
	}

	if content, ok := payload["content"].(string); ok && content != "" {
		out = append(out, extractFromContent(content)...)
	}

	return out
}

func extractFromEmbed(embed map[string]any) []candidate {
	var out []candidate

	if url, ok := embed["url"].(string); ok {
		if c, found := mintFromURL(url); found {
			c.Source = domain.SourceEmbedURL
			c.Confidence = confEmbedURL
			out = append(out, c)
		}
	}

	if title, ok := embed["title"].(string); ok {
		out = append(out, candidatesFromText(title, domain.SourceEmbedTitle, confEmbedTitle)...)
	}
	if desc, ok := embed["description"].(string); ok {
		out = append(out, candidatesFromText(desc, domain.SourceEmbedDescription, confEmbedDesc)...)
	}

	if fields, ok := embed["fields"].([]any); ok {
		for _, f := range fields {
			field, ok := f.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"name", "value"} {
				if text, ok := field[key].(string); ok {
					out = append(out, candidatesFromText(text, domain.SourceEmbedField, confEmbedField)...)
				}
			}
		}
	}

	if footer, ok := embed["footer"].(map[string]any); ok {
		if text, ok := footer["text"].(string); ok {
			if mint, found := base58FromText(text); found {
				out = append(out, candidate{
					Mint:       mint,
					Source:     domain.SourceEmbedFooter,
					Confidence: confEmbedFooter,
				})
			}
		}
	}

	return out
}

func extractFromComponents(components []any) []candidate {
	var out []candidate
	for _, r := range components {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		inner, ok := row["components"].([]any)
		if !ok {
			continue
		}
		for _, b := range inner {
			button, ok := b.(map[string]any)
			if !ok {
				continue
			}
			if url, ok := button["url"].(string); ok {
				if c, found := mintFromURL(url); found {
					c.Source = domain.SourceButton
					c.Confidence = confButton
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func extractFromContent(content string) []candidate {
	var out []candidate
	for _, url := range httpURLRe.FindAllString(content, -1) {
		if c, found := mintFromURL(url); found {
			c.Source = domain.SourceContentURL
			c.Confidence = confContentURL
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}

	// Last resort: bare token-shaped substring anywhere in the text.
	if mint, found := base58FromText(content); found {
		out = append(out, candidate{
			Mint:       mint,
			Source:     domain.SourceBase58Scan,
			Confidence: confBase58Scan,
		})
	}
	return out
}

func candidatesFromText(text string, source domain.SourceType, confidence float64) []candidate {
	var out []candidate
	for _, url := range httpURLRe.FindAllString(text, -1) {
		if c, found := mintFromURL(url); found {
			c.Source = source
			c.Confidence = confidence
			out = append(out, c)
		}
	}
	return out
}

// mintFromURL matches a URL against known platform patterns and query
// parameters. Source and Confidence are left for the caller to fill.
func mintFromURL(url string) (candidate, bool) {
	if m := solscanRe.FindStringSubmatch(url); m != nil {
		return candidate{Mint: m[1], SourceURL: url}, true
	}
	if m := birdeyeRe.FindStringSubmatch(url); m != nil {
		return candidate{Mint: m[1], SourceURL: url}, true
	}
	if m := pumpFunRe.FindStringSubmatch(url); m != nil {
		return candidate{Mint: m[1], SourceURL: url}, true
	}
	if m := dexscreenerRe.FindStringSubmatch(url); m != nil {
		return candidate{Mint: m[1], SourceURL: url, MaybePair: true}, true
	}
	if m := queryParamRe.FindStringSubmatch(url); m != nil {
		return candidate{Mint: m[1], SourceURL: url}, true
	}
	return candidate{}, false
}

// base58FromText returns the first substring that actually decodes as
// base58, not just one that looks token shaped.
func base58FromText(text string) (string, bool) {
	for _, m := range base58Re.FindAllString(text, -1) {
		if _, err := base58.Decode(m); err == nil {
			return m, true
		}
	}
	return "", false
}

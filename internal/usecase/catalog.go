package usecase

import (
	"fmt"
	"strings"
	"sync"

	"BreadthPull/internal/domain/models"
)

// Disclaimer is attached to every report.
const Disclaimer = "This tool is for informational purposes only and should not be considered financial advice. Market indicators can be volatile."

type indicatorText struct {
	title   string
	caption string
	up      string
	down    string
}

// describe returns the presentation text for composite c.
// primary is the display name of the excluded asset ("Bitcoin").
func describe(c models.Composite, primary string) indicatorText {
	switch c {
	case models.Total:
		return indicatorText{
			title: "Total Crypto Market Cap",
			up:    "Bullish",
			down:  "Bearish",
		}
	case models.Total2:
		return indicatorText{
			title:   fmt.Sprintf("Market Cap excluding %s (TOTAL2)", primary),
			caption: fmt.Sprintf("Market capitalisation of everything except %s.", primary),
			up:      "Expanding",
			down:    "Contracting",
		}
	case models.Others:
		return indicatorText{
			title:   "Market Cap outside the Basket (OTHERS)",
			caption: "Market capitalisation not covered by any basket asset, a proxy for long-tail speculative capital.",
			up:      "Expanding",
			down:    "Contracting",
		}
	case models.Total2Ratio:
		return indicatorText{
			title:   fmt.Sprintf("Altcoin Performance vs. %s (TOTAL2 / TOTAL)", primary),
			caption: fmt.Sprintf("Percentage of the total market cap made up of altcoins (excluding %s). An uptrend indicates altcoins are gaining market share relative to %s.", primary, primary),
			up:      "Altcoins Outperforming",
			down:    fmt.Sprintf("%s Outperforming", primary),
		}
	case models.OthersRatio:
		return indicatorText{
			title:   "High-Risk Altcoin Performance (OTHERS / TOTAL)",
			caption: "Percentage of the total market cap held outside the basket. An uptrend indicates a speculative, 'risk-on' environment.",
			up:      "High-Risk Alts Outperforming",
			down:    "Main Alts Outperforming",
		}
	default:
		return indicatorText{title: string(c), up: string(models.Ascending), down: string(models.Descending)}
	}
}

// label picks the trend label for t.
func (it indicatorText) label(t models.Trend) string {
	if t == models.Ascending {
		return it.up
	}
	return it.down
}

// displayName turns an asset id such as "bitcoin" or "shiba-inu" into "Bitcoin" / "Shiba Inu".
func displayName(assetID string) string {
	words := strings.FieldsFunc(assetID, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Notices collects human-readable messages raised while a run is in progress.
type Notices struct {
	mu    sync.Mutex
	items []string
}

// NewNotices creates an empty notice collector.
func NewNotices() *Notices { return &Notices{} }

// Add records a message.
func (n *Notices) Add(format string, args ...interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, fmt.Sprintf(format, args...))
}

// Drain returns every recorded message and clears the collector.
func (n *Notices) Drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	return out
}

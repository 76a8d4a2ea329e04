package agent

import (
	"regexp"
	"strings"
)

// InfoKind classifies the user's instruction so Done-completion can be
// gated on whether the summary actually answers it (spec.md §4.11).
type InfoKind string

const (
	InfoKindWeather InfoKind = "weather"
	InfoKindFlights InfoKind = "flights"
	InfoKindPrice   InfoKind = "price"
	InfoKindTime    InfoKind = "time"
	InfoKindNone    InfoKind = "none"
)

var infoKindSubstrings = []struct {
	kind   InfoKind
	substr []string
}{
	{InfoKindWeather, []string{"weather", "temperature", "forecast"}},
	{InfoKindFlights, []string{"flight", "flights"}},
	{InfoKindPrice, []string{"price", "cost", "how much"}},
	{InfoKindTime, []string{"what time", "current time"}},
}

// ClassifyInstruction lowercases instruction and returns the first
// info-kind whose substrings match, or InfoKindNone if none do.
func ClassifyInstruction(instruction string) InfoKind {
	lower := strings.ToLower(instruction)
	for _, entry := range infoKindSubstrings {
		for _, s := range entry.substr {
			if strings.Contains(lower, s) {
				return entry.kind
			}
		}
	}
	return InfoKindNone
}

var (
	temperaturePattern = regexp.MustCompile(`-?\d{1,2}\s*°\s*[cCfF]`)
	timePattern        = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	moneyPattern       = regexp.MustCompile(`(?i)\b\d[\d\s.,]{1,8}\s*(pln|zl|usd|eur|gbp)\b|[€$£]\s*\d[\d\s.,]{1,8}`)
	milestonePhrases   = []string{"search results", "results are displayed"}
	currencyTokens     = regexp.MustCompile(`(?i)\b(usd|eur|pln|gbp)\b|[€$£]`)
)

// SummarySufficient reports whether summary satisfies the pattern
// required by kind (spec.md §4.11, "Summary sufficiency").
func SummarySufficient(kind InfoKind, summary string) bool {
	lower := strings.ToLower(summary)
	for _, phrase := range milestonePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	switch kind {
	case InfoKindWeather:
		return temperaturePattern.MatchString(summary)
	case InfoKindFlights:
		return moneyPattern.MatchString(summary) || timePattern.MatchString(summary)
	case InfoKindPrice:
		return moneyPattern.MatchString(summary) || currencyTokens.MatchString(summary)
	case InfoKindTime:
		return timePattern.MatchString(summary)
	case InfoKindNone:
		return strings.TrimSpace(summary) != ""
	default:
		return strings.TrimSpace(summary) != ""
	}
}

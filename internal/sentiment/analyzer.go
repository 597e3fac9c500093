package sentiment

import (
	"strings"

	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// Classification thresholds on the compound score
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Analyzer performs lexicon-based polarity analysis. It backs up the LLM
// whenever a structured sentiment verdict is unavailable.
type Analyzer struct {
	lexicon map[string]float64
}

// NewAnalyzer creates new sentiment analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{lexicon: buildLexicon()}
}

// Compound analyzes text and returns a sentiment score in [-1.0, 1.0]
func (a *Analyzer) Compound(text string) float64 {
	if text == "" {
		return 0.0
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0.0
	}

	var score float64
	matchCount := 0

	for _, word := range words {
		// Strip punctuation and tweet decorations
		word = strings.Trim(word, ".,!?;:()\"'#@")

		if weight, ok := a.lexicon[word]; ok {
			score += weight
			matchCount++
		}
	}

	if matchCount == 0 {
		return 0.0
	}

	// Normalize by text length and clamp
	normalized := score / float64(len(words))
	if normalized > 1.0 {
		normalized = 1.0
	} else if normalized < -1.0 {
		normalized = -1.0
	}

	return normalized
}

// Classify maps the compound score of text to a sentiment label
func (a *Analyzer) Classify(text string) (string, float64) {
	score := a.Compound(text)

	switch {
	case score >= positiveThreshold:
		return models.SentimentPositive, score
	case score <= negativeThreshold:
		return models.SentimentNegative, score
	default:
		return models.SentimentNeutral, score
	}
}

// buildLexicon returns signed keyword weights tuned for Bitcoin tweets
func buildLexicon() map[string]float64 {
	return map[string]float64{
		// General positive
		"bullish":      1.0,
		"bull":         0.9,
		"rally":        0.9,
		"surge":        0.8,
		"soar":         0.8,
		"pump":         0.7,
		"moon":         0.7,
		"rocket":       0.7,
		"gain":         0.6,
		"gains":        0.6,
		"profit":       0.6,
		"win":          0.6,
		"green":        0.6,
		"up":           0.5,
		"rise":         0.5,
		"grow":         0.5,
		"growth":       0.5,
		"increase":     0.5,
		"positive":     0.5,
		"optimistic":   0.5,
		"breakthrough": 0.6,
		"adoption":     0.6,
		"partnership":  0.5,
		"upgrade":      0.5,
		"innovation":   0.5,

		// Bitcoin specific positive
		"halving":       0.6,
		"breakout":      0.7,
		"ath":           0.8, // all-time high
		"institutional": 0.5,
		"etf":           0.7,
		"approved":      0.6,
		"approval":      0.6,
		"accumulation":  0.5,
		"hodl":          0.4,

		// General negative
		"bearish":     -1.0,
		"bear":        -0.9,
		"crash":       -1.0,
		"dump":        -0.9,
		"plunge":      -0.8,
		"fall":        -0.6,
		"drop":        -0.6,
		"decline":     -0.6,
		"loss":        -0.7,
		"losses":      -0.7,
		"red":         -0.6,
		"down":        -0.5,
		"negative":    -0.5,
		"pessimistic": -0.5,
		"fear":        -0.6,
		"panic":       -0.8,
		"sell":        -0.5,
		"selloff":     -0.7,
		"correction":  -0.6,

		// Bitcoin specific negative
		"hack":         -1.0,
		"hacked":       -1.0,
		"exploit":      -1.0,
		"scam":         -1.0,
		"rug":          -1.0,
		"ponzi":        -1.0,
		"fraud":        -1.0,
		"lawsuit":      -0.7,
		"ban":          -0.8,
		"banned":       -0.8,
		"crackdown":    -0.7,
		"liquidation":  -0.8,
		"capitulation": -0.8,
		"fud":          -0.7, // fear, uncertainty, doubt
		"bubble":       -0.6,
		"overvalued":   -0.6,
	}
}

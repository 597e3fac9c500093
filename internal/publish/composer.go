package publish

import (
	"fmt"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// Tweets may not exceed 280 characters
const maxTweetRunes = 280

// Price line emojis by sign of the price change
const (
	emojiUp   = "📈"
	emojiDown = "📉"
)

// lowSignificanceEmojis decorate the price line when the news item has no
// strong class
var lowSignificanceEmojis = []string{"💡", "🧐", "➡️"}

// newsTemplate holds the rendering of one significance and sentiment class
type newsTemplate struct {
	priceEmoji string
	prefix     string
	hashtag    string
}

func newsClassTemplate(significance, sentiment string) (newsTemplate, bool) {
	switch significance {
	case models.SignificanceHigh:
		switch sentiment {
		case models.SentimentPositive:
			return newsTemplate{"🚀", "🔥 BIG NEWS for #Bitcoin!", "#CryptoNews"}, true
		case models.SentimentNegative:
			return newsTemplate{"⚠️", "🚨 Critical #Bitcoin Update!", "#CryptoAlert"}, true
		case models.SentimentNeutral:
			return newsTemplate{"📰", "📢 Key #Bitcoin Development:", "#BTCNews"}, true
		}
	case models.SignificanceMedium:
		switch sentiment {
		case models.SentimentPositive:
			return newsTemplate{"📈", "👍 Positive #Bitcoin Signal:", "#Crypto"}, true
		case models.SentimentNegative:
			return newsTemplate{"📉", "❗ Notable #Bitcoin Update (Caution):", "#BTC"}, true
		case models.SentimentNeutral:
			return newsTemplate{"📊", "🔍 #Bitcoin Update:", "#CryptoReport"}, true
		}
	}
	return newsTemplate{}, false
}

// Composer renders tweet text within the platform limit
type Composer struct {
	rng *rand.Rand
}

// NewComposer creates new tweet composer
func NewComposer() *Composer {
	return &Composer{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// FormatPrice renders a USD amount with thousands separators and cents
func FormatPrice(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func priceLine(price, changePct float64, emoji string) string {
	return fmt.Sprintf("BTC: %s | %+.2f%% %s", FormatPrice(price), changePct, emoji)
}

func changeEmoji(changePct float64) string {
	if changePct >= 0 {
		return emojiUp
	}
	return emojiDown
}

// ComposeNews renders a news tweet. The significance and sentiment labels
// pick the class, unknown combinations fall through to the plain rendering
// with a randomly chosen price line emoji.
func (c *Composer) ComposeNews(price, changePct float64, significance, sentiment, summary string) string {
	tpl, ok := newsClassTemplate(significance, sentiment)
	if !ok {
		tpl = newsTemplate{
			priceEmoji: lowSignificanceEmojis[c.rng.Intn(len(lowSignificanceEmojis))],
			hashtag:    "#Bitcoin",
		}
	}

	before := priceLine(price, changePct, tpl.priceEmoji) + "\n"
	if tpl.prefix != "" {
		before += tpl.prefix + " "
	}

	return clamp(before, summary, " "+tpl.hashtag)
}

// ComposeContent renders a price tweet carrying a quote or joke
func (c *Composer) ComposeContent(price, changePct float64, text string) string {
	before := priceLine(price, changePct, changeEmoji(changePct)) + "\n"

	return clamp(before, text, "\n#Bitcoin #Crypto")
}

// ComposePriceOnly renders the bare price fallback tweet
func (c *Composer) ComposePriceOnly(price, changePct float64) string {
	return priceLine(price, changePct, changeEmoji(changePct)) + "\n#Bitcoin #Price"
}

// clamp keeps the message within the platform limit. Only the variable
// portion is shortened, the price line and hashtags stay intact, and a
// cut is marked with an ellipsis.
func clamp(before, variable, after string) string {
	fixed := utf8.RuneCountInString(before) + utf8.RuneCountInString(after)
	if fixed+utf8.RuneCountInString(variable) <= maxTweetRunes {
		return before + variable + after
	}

	budget := maxTweetRunes - fixed - 1
	if budget < 0 {
		budget = 0
	}

	runes := []rune(variable)
	if len(runes) > budget {
		runes = runes[:budget]
	}

	return before + string(runes) + "…" + after
}

package content

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// recentPostsWindow is how many recent posts inform the kind choice
const recentPostsWindow = 10

// Pick represents a selected quote or joke
type Pick struct {
	Text string
	Kind string
}

// Picker selects filler content for scheduled posts when no significant
// news is available
type Picker struct {
	store       *store.Store
	rng         *rand.Rand
	reuseWindow time.Duration
}

// NewPicker creates new content picker
func NewPicker(st *store.Store, reuseWindow time.Duration) *Picker {
	return &Picker{
		store:       st,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		reuseWindow: reuseWindow,
	}
}

// Next returns the next quote or joke, or nil when both tables are
// empty. Selection rotates kinds: the kind posted less recently gets
// better odds, and within a kind the store prefers least-used items
// outside the reuse window.
func (p *Picker) Next(ctx context.Context) (*Pick, error) {
	kind := p.pickKind(ctx)

	item, err := p.store.GetRandomContent(ctx, kind, p.reuseWindow)
	if err != nil {
		return nil, err
	}
	if item == nil {
		// Empty table, try the other kind before giving up
		kind = otherKind(kind)
		item, err = p.store.GetRandomContent(ctx, kind, p.reuseWindow)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, nil
		}
	}

	logger.Debug("content picked",
		zap.String("kind", kind),
		zap.Int64("content_id", item.ID),
	)

	return &Pick{Text: item.Text, Kind: contentType(kind)}, nil
}

// pickKind chooses between quotes and jokes, favoring whichever kind
// was not posted most recently
func (p *Picker) pickKind(ctx context.Context) string {
	favored := ""

	posts, err := p.store.GetRecentPosts(ctx, recentPostsWindow)
	if err != nil {
		logger.Warn("failed to load recent posts for kind choice", zap.Error(err))
	} else {
		for _, post := range posts {
			if post.ContentType == models.ContentTypeQuote {
				favored = models.ContentKindJoke
				break
			}
			if post.ContentType == models.ContentTypeJoke {
				favored = models.ContentKindQuote
				break
			}
		}
	}

	if favored == "" {
		if p.rng.Intn(2) == 0 {
			return models.ContentKindQuote
		}
		return models.ContentKindJoke
	}

	if p.rng.Intn(10) < 7 {
		return favored
	}
	return otherKind(favored)
}

func otherKind(kind string) string {
	if kind == models.ContentKindQuote {
		return models.ContentKindJoke
	}
	return models.ContentKindQuote
}

func contentType(kind string) string {
	if kind == models.ContentKindJoke {
		return models.ContentTypeJoke
	}
	return models.ContentTypeQuote
}

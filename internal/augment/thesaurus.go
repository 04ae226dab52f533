package augment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/NewsSort/internal/ai"
)

// Thesaurus returns synonym candidates for a word. Multiword candidates may
// use underscores in place of spaces.
type Thesaurus interface {
	Synonyms(ctx context.Context, word string) ([]string, error)
}

// MapThesaurus is a static word -> synonyms table keyed by lowercase word.
type MapThesaurus map[string][]string

func (m MapThesaurus) Synonyms(_ context.Context, word string) ([]string, error) {
	return m[strings.ToLower(word)], nil
}

// LoadThesaurus reads a YAML mapping of word to synonym list.
func LoadThesaurus(path string) (MapThesaurus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thesaurus: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse thesaurus %s: %w", path, err)
	}

	m := make(MapThesaurus, len(raw))
	for word, syns := range raw {
		key := strings.ToLower(strings.TrimSpace(word))
		m[key] = append(m[key], syns...)
	}
	return m, nil
}

// DefaultThesaurus returns a small built-in table of headline vocabulary.
func DefaultThesaurus() MapThesaurus {
	return MapThesaurus{
		"says":       {"states", "claims", "declares"},
		"said":       {"stated", "claimed", "declared"},
		"new":        {"fresh", "novel", "latest"},
		"big":        {"large", "major", "huge"},
		"win":        {"victory", "triumph"},
		"wins":       {"clinches", "secures", "takes"},
		"beat":       {"defeat", "overcome"},
		"beats":      {"defeats", "tops", "overcomes"},
		"rise":       {"increase", "climb", "surge"},
		"rises":      {"climbs", "increases", "surges"},
		"fall":       {"drop", "decline", "slide"},
		"falls":      {"drops", "declines", "slides"},
		"plan":       {"scheme", "proposal", "programme"},
		"plans":      {"intends", "proposes", "aims"},
		"help":       {"aid", "assist", "support"},
		"boost":      {"lift", "raise", "bolster"},
		"cut":        {"reduce", "trim", "slash"},
		"cuts":       {"reduces", "trims", "slashes"},
		"kill":       {"slay"},
		"killed":     {"slain"},
		"probe":      {"investigation", "inquiry"},
		"urges":      {"calls_on", "presses", "encourages"},
		"warns":      {"cautions", "alerts"},
		"hits":       {"strikes", "reaches"},
		"seeks":      {"pursues", "wants"},
		"set":        {"poised", "ready"},
		"top":        {"leading", "best"},
		"key":        {"crucial", "vital", "major"},
		"launch":     {"unveil", "introduce", "roll_out"},
		"launches":   {"unveils", "introduces", "rolls_out"},
		"gets":       {"receives", "obtains"},
		"move":       {"step", "action"},
		"talks":      {"negotiations", "discussions"},
		"deal":       {"agreement", "pact", "accord"},
		"fans":       {"supporters", "followers"},
		"people":     {"public", "citizens"},
		"country":    {"nation"},
		"government": {"administration"},
		"minister":   {"secretary"},
		"police":     {"cops", "authorities"},
		"firm":       {"company", "business"},
		"company":    {"firm", "business"},
		"state":      {"province"},
		"school":     {"academy"},
		"students":   {"pupils", "learners"},
		"study":      {"research", "report"},
		"case":       {"incident", "matter"},
		"cases":      {"incidents", "infections"},
		"record":     {"all-time_high"},
		"year":       {"twelvemonth"},
		"today":      {"now"},
		"amid":       {"during", "among"},
		"over":       {"about", "regarding"},
		"after":      {"following"},
	}
}

// Completer sends a prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

var _ Completer = (*ai.Client)(nil)

const synonymSystemPrompt = "You are a thesaurus. Reply only with a JSON array of strings."

// LLMThesaurus asks a language model for synonyms.
type LLMThesaurus struct {
	client Completer
	max    int
	logger *slog.Logger
}

// NewLLMThesaurus creates a thesaurus backed by client.
func NewLLMThesaurus(client Completer, logger *slog.Logger) *LLMThesaurus {
	return &LLMThesaurus{
		client: client,
		max:    5,
		logger: logger.With("component", "llm_thesaurus"),
	}
}

func (t *LLMThesaurus) Synonyms(ctx context.Context, word string) ([]string, error) {
	prompt := fmt.Sprintf("List up to %d synonyms for the word %q as it would be used in a news headline. "+
		"Use single words where possible. If there are none, reply with [].", t.max, word)

	answer, err := t.client.Complete(ctx, synonymSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	syns := ai.ParseList(answer)
	if len(syns) > t.max {
		syns = syns[:t.max]
	}
	t.logger.Debug("synonyms", "word", word, "count", len(syns))
	return syns, nil
}

// CachedThesaurus memoizes another thesaurus, including misses. Errors are
// not cached.
type CachedThesaurus struct {
	inner Thesaurus
	cache *gocache.Cache
}

// NewCachedThesaurus wraps inner with an in-memory cache.
func NewCachedThesaurus(inner Thesaurus, ttl time.Duration) *CachedThesaurus {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &CachedThesaurus{
		inner: inner,
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

func (c *CachedThesaurus) Synonyms(ctx context.Context, word string) ([]string, error) {
	key := strings.ToLower(word)
	if v, found := c.cache.Get(key); found {
		return v.([]string), nil
	}

	syns, err := c.inner.Synonyms(ctx, word)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, syns)
	return syns, nil
}

// Len returns the number of cached words.
func (c *CachedThesaurus) Len() int {
	return c.cache.ItemCount()
}

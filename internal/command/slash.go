package command

import (
	"sync"

	"github.com/dshills/folio/internal/command/fuzzy"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/preset"
)

// Item is a slash menu entry.
type Item struct {
	Title       string
	Description string
	Group       string
	Keywords    []string
	Command     string
	Params      Params
}

// Match is a catalog item matching a query.
type Match struct {
	Item    Item
	Score   int
	Matches []int // rune indices into Item.Title; nil for keyword hits
}

// Catalog is the slash menu. It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	items   []Item
	matcher *fuzzy.Matcher
}

// NewCatalog creates a catalog holding items.
func NewCatalog(items ...Item) *Catalog {
	return &Catalog{
		items:   append([]Item(nil), items...),
		matcher: fuzzy.NewMatcher(fuzzy.DefaultOptions()),
	}
}

// DefaultCatalog returns the built-in slash menu.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Item{Title: "Text", Group: "Basic", Keywords: []string{"paragraph", "p"}, Command: TurnInto, Params: Params{"type": preset.Paragraph}},
		Item{Title: "Heading 1", Group: "Basic", Keywords: []string{"h1", "title"}, Command: InsertHeading, Params: Params{"level": 1}},
		Item{Title: "Heading 2", Group: "Basic", Keywords: []string{"h2", "subtitle"}, Command: InsertHeading, Params: Params{"level": 2}},
		Item{Title: "Heading 3", Group: "Basic", Keywords: []string{"h3"}, Command: InsertHeading, Params: Params{"level": 3}},
		Item{Title: "Bullet list", Group: "Basic", Keywords: []string{"ul", "unordered"}, Command: ToggleList, Params: Params{"type": preset.BulletList}},
		Item{Title: "Numbered list", Group: "Basic", Keywords: []string{"ol", "ordered"}, Command: ToggleList, Params: Params{"type": preset.OrderedList}},
		Item{Title: "Quote", Group: "Basic", Keywords: []string{"blockquote"}, Command: TurnInto, Params: Params{"type": preset.Blockquote}},
		Item{Title: "Code", Group: "Basic", Keywords: []string{"codeblock", "pre"}, Command: TurnInto, Params: Params{"type": preset.CodeBlock}},
		Item{Title: "Divider", Group: "Basic", Keywords: []string{"hr", "separator", "line"}, Command: InsertDivider},
		Item{Title: "Callout", Group: "Blocks", Description: "Highlighted note", Keywords: []string{"note", "info", "warning"}, Command: InsertCallout},
		Item{Title: "Card", Group: "Blocks", Description: "Card with header", Keywords: []string{"box"}, Command: InsertCard},
		Item{Title: "Columns", Group: "Layout", Description: "Two columns", Keywords: []string{"layout", "grid"}, Command: InsertColumns, Params: Params{"count": 2}},
		Item{Title: "Three columns", Group: "Layout", Keywords: []string{"layout", "grid"}, Command: InsertColumns, Params: Params{"count": 3}},
		Item{Title: "Custom page", Group: "Layout", Description: "Page with its own size and spacing", Keywords: []string{"section", "page"}, Command: InsertCustomPage},
		Item{Title: "Gallery", Group: "Media", Keywords: []string{"images", "photos"}, Command: InsertGallery},
		Item{Title: "Image", Group: "Media", Keywords: []string{"picture", "photo"}, Command: InsertImage},
		Item{Title: "Video", Group: "Media", Keywords: []string{"youtube", "vimeo", "movie"}, Command: InsertVideo},
	)
}

// Add appends items.
func (c *Catalog) Add(items ...Item) {
	c.mu.Lock()
	c.items = append(c.items, items...)
	c.mu.Unlock()
	c.matcher.ClearCache()
}

// Remove deletes every item running the named command. It returns the
// number of items removed.
func (c *Catalog) Remove(command string) int {
	c.mu.Lock()
	kept := c.items[:0]
	for _, it := range c.items {
		if it.Command != command {
			kept = append(kept, it)
		}
	}
	removed := len(c.items) - len(kept)
	c.items = kept
	c.mu.Unlock()
	if removed > 0 {
		c.matcher.ClearCache()
	}
	return removed
}

// Items returns the catalog items in order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Item(nil), c.items...)
}

// Filter returns the items matching query by title or keyword, best
// first, at most limit when limit > 0. An empty query returns all items
// in catalog order.
func (c *Catalog) Filter(query string, limit int) []Match {
	items := c.Items()
	if query == "" {
		out := make([]Match, 0, len(items))
		for _, it := range items {
			out = append(out, Match{Item: it})
		}
		return limited(out, limit)
	}

	candidates := make([]fuzzy.Item, 0, len(items))
	for i, it := range items {
		candidates = append(candidates, fuzzy.Item{Text: it.Title, Data: hit{index: i, title: true}})
		for _, kw := range it.Keywords {
			candidates = append(candidates, fuzzy.Item{Text: kw, Data: hit{index: i}})
		}
	}

	results := c.matcher.Match(query, candidates, 0)
	seen := make(map[int]bool, len(results))
	out := make([]Match, 0, len(results))
	for _, r := range results {
		h := r.Item.Data.(hit) //nolint:errcheck // candidates only carry hit
		if seen[h.index] {
			continue
		}
		seen[h.index] = true
		m := Match{Item: items[h.index], Score: r.Score}
		if h.title {
			m.Matches = r.Matches
		}
		out = append(out, m)
	}
	return limited(out, limit)
}

// Available filters like Filter and keeps the items whose command can
// apply to st.
func (c *Catalog) Available(d *Dispatcher, st engine.State, query string, limit int) []Match {
	all := c.Filter(query, 0)
	out := all[:0]
	for _, m := range all {
		if d.CanApply(st, m.Item.Command, m.Item.Params) {
			out = append(out, m)
		}
	}
	return limited(out, limit)
}

type hit struct {
	index int
	title bool
}

func limited(ms []Match, limit int) []Match {
	if limit > 0 && len(ms) > limit {
		return ms[:limit]
	}
	return ms
}

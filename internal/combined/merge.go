package combined

import (
	"container/heap"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// Strategy selects how the two kinds are paginated together.
type Strategy string

const (
	// StrategyGlobal merges (id, key) tuples from both tables before
	// fetching the page, giving a globally ordered feed.
	StrategyGlobal Strategy = "global"
	// StrategyWindow pages each table independently and re-sorts the
	// concatenation. Ordering is only correct within the fetched window.
	StrategyWindow Strategy = "window"
)

// ParseStrategy maps a config value to a Strategy, defaulting to global.
func ParseStrategy(s string) Strategy {
	if Strategy(strings.ToLower(strings.TrimSpace(s))) == StrategyWindow {
		return StrategyWindow
	}
	return StrategyGlobal
}

// SortKey holds the value a record sorts by. Only the member matching the
// sort field is meaningful.
type SortKey struct {
	Time time.Time
	Text string
	Num  float64
}

// Entry is a lightweight (id, key) tuple used by the global merge.
type Entry struct {
	ID   string
	Kind plantation.Kind
	Key  SortKey
}

// KeyTarget returns the scan destination for the sort key of e.
func (s Sort) KeyTarget(e *Entry) any {
	switch s.Field {
	case SortStatus:
		return &e.Key.Text
	case SortDistance:
		return &e.Key.Num
	default:
		return &e.Key.Time
	}
}

// KeyOf extracts the sort key from a loaded record.
func (s Sort) KeyOf(r *plantation.Record) SortKey {
	switch s.Field {
	case SortUpdatedAt:
		return SortKey{Time: r.UpdatedAt}
	case SortPlantationDate:
		return SortKey{Time: r.PlantationDate}
	case SortStatus:
		return SortKey{Text: string(r.Status)}
	case SortDistance:
		if r.Distance != nil {
			return SortKey{Num: *r.Distance}
		}
		return SortKey{}
	}
	return SortKey{Time: r.CreatedAt}
}

// Less orders two entries by key, then id, then kind, in the sort direction.
func (s Sort) Less(a, b Entry) bool {
	c := s.compareKeys(a.Key, b.Key)
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if c == 0 {
		c = strings.Compare(string(a.Kind), string(b.Kind))
	}
	if s.Desc {
		return c > 0
	}
	return c < 0
}

func (s Sort) compareKeys(a, b SortKey) int {
	switch s.Field {
	case SortStatus:
		return strings.Compare(a.Text, b.Text)
	case SortDistance:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	}
	return a.Time.Compare(b.Time)
}

// Source is the record store as seen by the merge engine. Every call is
// scoped to the kind of the predicate it receives.
type Source interface {
	Count(ctx context.Context, pred Predicate) (int, error)
	Find(ctx context.Context, pred Predicate, s Sort, offset, limit int) ([]plantation.CombinedResult, error)
	Keys(ctx context.Context, pred Predicate, s Sort, n int) ([]Entry, error)
	FetchByIDs(ctx context.Context, pred Predicate, ids []string) ([]plantation.CombinedResult, error)
}

// Pagination describes the position of a page in the combined feed.
type Pagination struct {
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	CurrentPage     int  `json:"currentPage"`
	Limit           int  `json:"limit"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPrevPage     bool `json:"hasPrevPage"`
	BlockCount      int  `json:"blockCount"`
	IndividualCount int  `json:"individualCount"`
}

// Page is one page of the combined feed.
type Page struct {
	Results    []plantation.CombinedResult
	Pagination Pagination
}

// Engine lists plantations of both kinds as one paginated feed.
type Engine struct {
	src      Source
	strategy Strategy
}

// NewEngine returns an engine reading from src.
func NewEngine(src Source, strategy Strategy) *Engine {
	if strategy != StrategyWindow {
		strategy = StrategyGlobal
	}
	return &Engine{src: src, strategy: strategy}
}

// List returns the requested page. Any sub-query failure fails the call.
func (e *Engine) List(ctx context.Context, q Query) (Page, error) {
	preds := Predicates(q)
	counts := make([]int, len(preds))

	var results []plantation.CombinedResult
	var err error
	switch e.strategy {
	case StrategyWindow:
		results, err = e.listWindow(ctx, q, preds, counts)
	default:
		results, err = e.listGlobal(ctx, q, preds, counts)
	}
	if err != nil {
		return Page{}, err
	}

	p := Pagination{CurrentPage: q.Page, Limit: q.Limit}
	for i, pred := range preds {
		switch pred.Kind {
		case plantation.KindBlock:
			p.BlockCount = counts[i]
		case plantation.KindIndividual:
			p.IndividualCount = counts[i]
		}
	}
	p.TotalCount = p.BlockCount + p.IndividualCount
	p.TotalPages = (p.TotalCount + q.Limit - 1) / q.Limit
	p.HasNextPage = q.Page < p.TotalPages
	p.HasPrevPage = q.Page > 1

	if results == nil {
		results = []plantation.CombinedResult{}
	}
	return Page{Results: results, Pagination: p}, nil
}

func (e *Engine) countAll(ctx context.Context, preds []Predicate, counts []int) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, pred := range preds {
		g.Go(func() error {
			n, err := e.src.Count(gctx, pred)
			if err != nil {
				return eris.Wrapf(err, "combined: count %s", pred.Kind)
			}
			counts[i] = n
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) listGlobal(ctx context.Context, q Query, preds []Predicate, counts []int) ([]plantation.CombinedResult, error) {
	if err := e.countAll(ctx, preds, counts); err != nil {
		return nil, err
	}
	if q.Offset() >= sum(counts) {
		return nil, nil
	}

	end := q.Offset() + q.Limit
	lists := make([][]Entry, len(preds))
	g, gctx := errgroup.WithContext(ctx)
	for i, pred := range preds {
		n := min(end, counts[i])
		if n <= 0 {
			continue
		}
		g.Go(func() error {
			keys, err := e.src.Keys(gctx, pred, q.Sort, n)
			if err != nil {
				return eris.Wrapf(err, "combined: keys %s", pred.Kind)
			}
			lists[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	window := mergeEntries(lists, q.Sort, end)
	if q.Offset() >= len(window) {
		return nil, nil
	}
	window = window[q.Offset():]

	return e.fetchWindow(ctx, preds, window)
}

// fetchWindow loads the documents of window and returns them in window
// order. Rows deleted between the key scan and the fetch are skipped.
func (e *Engine) fetchWindow(ctx context.Context, preds []Predicate, window []Entry) ([]plantation.CombinedResult, error) {
	ids := make(map[plantation.Kind][]string, len(preds))
	for _, en := range window {
		ids[en.Kind] = append(ids[en.Kind], en.ID)
	}

	docs := make([][]plantation.CombinedResult, len(preds))
	g, gctx := errgroup.WithContext(ctx)
	for i, pred := range preds {
		kindIDs := ids[pred.Kind]
		if len(kindIDs) == 0 {
			continue
		}
		g.Go(func() error {
			rows, err := e.src.FetchByIDs(gctx, pred, kindIDs)
			if err != nil {
				return eris.Wrapf(err, "combined: fetch %s", pred.Kind)
			}
			docs[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type docKey struct {
		kind plantation.Kind
		id   string
	}
	byID := make(map[docKey]plantation.CombinedResult, len(window))
	for _, rows := range docs {
		for _, r := range rows {
			if base := r.Base(); base != nil {
				byID[docKey{r.Kind, base.ID}] = r
			}
		}
	}

	out := make([]plantation.CombinedResult, 0, len(window))
	for _, en := range window {
		if r, ok := byID[docKey{en.Kind, en.ID}]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (e *Engine) listWindow(ctx context.Context, q Query, preds []Predicate, counts []int) ([]plantation.CombinedResult, error) {
	if err := e.countAll(ctx, preds, counts); err != nil {
		return nil, err
	}

	pages := make([][]plantation.CombinedResult, len(preds))
	g, gctx := errgroup.WithContext(ctx)
	for i, pred := range preds {
		if q.Offset() >= counts[i] {
			continue
		}
		g.Go(func() error {
			rows, err := e.src.Find(gctx, pred, q.Sort, q.Offset(), q.Limit)
			if err != nil {
				return eris.Wrapf(err, "combined: find %s", pred.Kind)
			}
			pages[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []plantation.CombinedResult
	for _, rows := range pages {
		all = append(all, rows...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return q.Sort.Less(entryOf(q.Sort, all[i]), entryOf(q.Sort, all[j]))
	})
	if len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, nil
}

func entryOf(s Sort, r plantation.CombinedResult) Entry {
	base := r.Base()
	return Entry{ID: base.ID, Kind: r.Kind, Key: s.KeyOf(base)}
}

// mergeEntries k-way merges lists, each already sorted by s, and returns at
// most n entries.
func mergeEntries(lists [][]Entry, s Sort, n int) []Entry {
	h := &cursorHeap{sort: s}
	total := 0
	for _, l := range lists {
		if len(l) > 0 {
			h.items = append(h.items, cursor{list: l})
			total += len(l)
		}
	}
	heap.Init(h)

	out := make([]Entry, 0, min(n, total))
	for h.Len() > 0 && len(out) < n {
		top := &h.items[0]
		out = append(out, top.list[top.pos])
		top.pos++
		if top.pos == len(top.list) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
	return out
}

func sum(counts []int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

type cursor struct {
	list []Entry
	pos  int
}

type cursorHeap struct {
	items []cursor
	sort  Sort
}

func (h *cursorHeap) Len() int { return len(h.items) }

func (h *cursorHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	return h.sort.Less(a.list[a.pos], b.list[b.pos])
}

func (h *cursorHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *cursorHeap) Push(x any) { h.items = append(h.items, x.(cursor)) }

func (h *cursorHeap) Pop() any {
	old := h.items
	last := old[len(old)-1]
	h.items = old[:len(old)-1]
	return last
}

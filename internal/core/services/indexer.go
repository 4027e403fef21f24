package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/logger"
)

// Ensure ContentTypeIndexer implements the interface.
var _ driven.SyncSubscriber = (*ContentTypeIndexer)(nil)

// DefaultFinalizeConcurrency bounds concurrent link lookups in Finalize.
const DefaultFinalizeConcurrency = 8

// ContentTypeIndexer infers content type schemas from sampled entries.
//
// Index may be called from many goroutines. Link targets are learned in two
// phases: Index records candidate ids, Finalize looks them up, since a
// link may be sampled before its target.
type ContentTypeIndexer struct {
	mu          sync.Mutex
	types       map[string]*typeState
	concurrency int
}

type typeState struct {
	mu         sync.Mutex
	schema     domain.SchemaType
	candidates map[string]map[string]struct{}
}

// NewContentTypeIndexer creates an empty indexer.
func NewContentTypeIndexer() *ContentTypeIndexer {
	return &ContentTypeIndexer{
		types:       make(map[string]*typeState),
		concurrency: DefaultFinalizeConcurrency,
	}
}

// Name implements driven.SyncSubscriber.
func (x *ContentTypeIndexer) Name() string { return "content-type-indexer" }

// OnItem implements driven.SyncSubscriber.
func (x *ContentTypeIndexer) OnItem(_ context.Context, doc *domain.Document) error {
	x.Index(doc)
	return nil
}

// state returns the registry entry for contentType, creating it.
func (x *ContentTypeIndexer) state(contentType string) *typeState {
	x.mu.Lock()
	defer x.mu.Unlock()
	st, ok := x.types[contentType]
	if !ok {
		st = &typeState{
			schema: domain.SchemaType{
				Name:        TypeName(contentType),
				ContentType: contentType,
				Fields:      make(map[string]domain.FieldDef),
			},
			candidates: make(map[string]map[string]struct{}),
		}
		x.types[contentType] = st
	}
	return st
}

// Index samples the field values of an entry. Other kinds are ignored.
func (x *ContentTypeIndexer) Index(doc *domain.Document) {
	if doc == nil || doc.Kind != domain.KindEntry || doc.ContentType == "" {
		return
	}

	// infer outside the lock
	samples := make(map[string][]sample, len(doc.Fields))
	for name, raw := range doc.Fields {
		values := []any{raw}
		if doc.Localized() {
			byLocale, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			values = values[:0]
			for _, v := range byLocale {
				values = append(values, v)
			}
		}
		for _, v := range values {
			if s, ok := infer(v); ok {
				samples[name] = append(samples[name], s)
			}
		}
	}

	st := x.state(doc.ContentType)
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, name := range sortedSampleNames(samples) {
		for _, s := range samples[name] {
			st.schema.Fields[name] = unify(st.schema.Fields[name], s.def(name))
			if len(s.linkIDs) > 0 {
				ids := st.candidates[name]
				if ids == nil {
					ids = make(map[string]struct{})
					st.candidates[name] = ids
				}
				for _, id := range s.linkIDs {
					ids[id] = struct{}{}
				}
			}
		}
	}
}

// Finalize looks up every candidate link id in finder and records the
// target content types. Lookups run concurrently.
func (x *ContentTypeIndexer) Finalize(ctx context.Context, finder links.Finder) error {
	type candidate struct {
		st    *typeState
		field string
		id    string
	}

	x.mu.Lock()
	states := make([]*typeState, 0, len(x.types))
	for _, st := range x.types {
		states = append(states, st)
	}
	x.mu.Unlock()

	var work []candidate
	for _, st := range states {
		st.mu.Lock()
		for field, ids := range st.candidates {
			for id := range ids {
				work = append(work, candidate{st: st, field: field, id: id})
			}
		}
		st.candidates = make(map[string]map[string]struct{})
		st.mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(x.concurrency)
	for _, c := range work {
		g.Go(func() error {
			target, err := finder.Find(ctx, c.id, domain.WithLocale(domain.LocaleAll))
			if err != nil {
				return fmt.Errorf("finalize %s.%s -> %s: %w", c.st.schema.ContentType, c.field, c.id, err)
			}
			if target == nil || target.ContentType == "" {
				return nil
			}
			c.st.mu.Lock()
			defer c.st.mu.Unlock()
			def := c.st.schema.Fields[c.field]
			def.LinkTypes = union(def.LinkTypes, target.ContentType)
			c.st.schema.Fields[c.field] = def
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Debug("indexer: resolved %d link candidates", len(work))
	return nil
}

// IndexStore samples every entry currently in store and finalizes links.
func (x *ContentTypeIndexer) IndexStore(ctx context.Context, store driven.Store) error {
	n := 0
	for doc, err := range store.FindAll("", domain.WithLocale(domain.LocaleAll)).Result(ctx) {
		if err != nil {
			return fmt.Errorf("index store: %w", err)
		}
		x.Index(doc)
		n++
	}
	logger.Debug("indexer: sampled %d documents", n)
	return x.Finalize(ctx, store)
}

// Types returns a snapshot of every schema, sorted by content type.
func (x *ContentTypeIndexer) Types() []domain.SchemaType {
	x.mu.Lock()
	states := make([]*typeState, 0, len(x.types))
	for _, st := range x.types {
		states = append(states, st)
	}
	x.mu.Unlock()

	out := make([]domain.SchemaType, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		schema := st.schema
		schema.Fields = make(map[string]domain.FieldDef, len(st.schema.Fields))
		for name, def := range st.schema.Fields {
			def.LinkTypes = append([]string(nil), def.LinkTypes...)
			schema.Fields[name] = def
		}
		st.mu.Unlock()
		out = append(out, schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentType < out[j].ContentType })
	return out
}

// Reset forgets every schema.
func (x *ContentTypeIndexer) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.types = make(map[string]*typeState)
}

// sample is the type inferred from one value.
type sample struct {
	typ       domain.FieldType
	array     bool
	linkTypes []string
	linkIDs   []string
}

func (s sample) def(name string) domain.FieldDef {
	return domain.FieldDef{Name: name, Type: s.typ, Array: s.array, LinkTypes: s.linkTypes}
}

// infer returns the type of one field value. Nil values carry no information.
func infer(v any) (sample, bool) {
	switch t := v.(type) {
	case nil:
		return sample{}, false
	case bool:
		return sample{typ: domain.FieldBoolean}, true
	case float64:
		return sample{typ: numberType(t)}, true
	case float32:
		return sample{typ: numberType(float64(t))}, true
	case int, int32, int64:
		return sample{typ: domain.FieldInt}, true
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return sample{typ: domain.FieldInt}, true
		}
		return sample{typ: domain.FieldFloat}, true
	case string:
		if isDateTime(t) {
			return sample{typ: domain.FieldDateTime}, true
		}
		return sample{typ: domain.FieldString}, true
	case time.Time:
		return sample{typ: domain.FieldDateTime}, true
	case *domain.Document:
		s := sample{typ: domain.FieldLink}
		if t.Kind == domain.KindAsset {
			s.typ = domain.FieldAsset
		}
		if t.ContentType != "" {
			s.linkTypes = []string{t.ContentType}
		}
		return s, true
	case []any:
		var out sample
		found := false
		for _, inner := range t {
			s, ok := infer(inner)
			if !ok {
				continue
			}
			if !found {
				out, found = s, true
				continue
			}
			merged := unify(out.def(""), s.def(""))
			out.typ, out.linkTypes = merged.Type, merged.LinkTypes
			out.linkIDs = append(out.linkIDs, s.linkIDs...)
		}
		if !found {
			return sample{}, false
		}
		out.array = true
		return out, true
	case map[string]any:
		if link, ok := domain.AsLink(t); ok {
			if link.LinkType == string(domain.KindAsset) {
				return sample{typ: domain.FieldAsset}, true
			}
			return sample{typ: domain.FieldLink, linkIDs: []string{link.ID}}, true
		}
		if isCoordinates(t) {
			return sample{typ: domain.FieldCoordinates}, true
		}
		return sample{typ: domain.FieldJSON}, true
	default:
		return sample{typ: domain.FieldJSON}, true
	}
}

func numberType(f float64) domain.FieldType {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return domain.FieldInt
	}
	return domain.FieldFloat
}

func isDateTime(s string) bool {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isCoordinates(m map[string]any) bool {
	if len(m) != 2 {
		return false
	}
	_, lat := m["lat"].(float64)
	_, lon := m["lon"].(float64)
	return lat && lon
}

// unify merges a new sample into an existing definition. Int widens to
// Float in either order; any other conflict keeps the existing type.
func unify(cur, next domain.FieldDef) domain.FieldDef {
	if cur.Type == "" {
		return next
	}
	out := cur
	switch {
	case cur.Type == next.Type:
	case cur.Type == domain.FieldInt && next.Type == domain.FieldFloat,
		cur.Type == domain.FieldFloat && next.Type == domain.FieldInt:
		out.Type = domain.FieldFloat
	}
	out.Array = cur.Array || next.Array
	out.LinkTypes = union(cur.LinkTypes, next.LinkTypes...)
	return out
}

// union returns the sorted set union of a and b.
func union(a []string, b ...string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func sortedSampleNames(m map[string][]sample) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeName derives a type name from a content type id:
// "blogPost" and "blog-post" both become "BlogPost".
func TypeName(contentType string) string {
	var b strings.Builder
	upper := true
	for _, r := range contentType {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	name := b.String()
	if name == "" {
		return "Unknown"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "T" + name
	}
	return name
}

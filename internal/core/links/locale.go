package links

import "github.com/custodia-labs/replica/internal/core/domain"

// LocaleChain returns the fallback chain for locale, most specific first.
// An empty or "*" locale starts at the configured default. The default
// locale always ends the chain.
func LocaleChain(locale string, cfg domain.LocaleConfig) []string {
	def := cfg.Default
	if def == "" {
		def = domain.DefaultLocale
	}
	if locale == "" || locale == domain.LocaleAll {
		locale = def
	}

	chain := []string{locale}
	seen := map[string]bool{locale: true}
	for cur := locale; ; {
		next, ok := cfg.Fallbacks[cur]
		if !ok || next == "" || seen[next] {
			break
		}
		chain = append(chain, next)
		seen[next] = true
		cur = next
	}
	if !seen[def] {
		chain = append(chain, def)
	}
	return chain
}

// ExpandPaths inserts a locale segment after every field name that follows a
// "fields" segment and returns every combination of chain locales.
// Variants are ordered most specific first with the outermost hop varying
// slowest, so a three-locale chain over a two-hop path yields nine variants.
func ExpandPaths(path []string, chain []string) [][]string {
	if len(chain) == 0 {
		chain = []string{domain.DefaultLocale}
	}

	var hops []int
	for i := 1; i < len(path); i++ {
		if path[i-1] == "fields" {
			hops = append(hops, i)
		}
	}

	variants := [][]string{{}}
	start := 0
	for _, hop := range hops {
		next := make([][]string, 0, len(variants)*len(chain))
		for _, prefix := range variants {
			for _, locale := range chain {
				v := make([]string, 0, len(path)+len(hops))
				v = append(v, prefix...)
				v = append(v, path[start:hop+1]...)
				v = append(v, locale)
				next = append(next, v)
			}
		}
		variants = next
		start = hop + 1
	}
	for i := range variants {
		variants[i] = append(variants[i], path[start:]...)
	}
	return variants
}

// Localize returns a single-locale view of doc. Each field takes the value of
// the first locale in chain that has one; fields with no value are dropped.
// Documents that are already single-locale are returned unchanged.
func Localize(doc *domain.Document, chain []string) *domain.Document {
	if doc == nil || !doc.Localized() {
		return doc
	}
	if len(chain) == 0 {
		chain = []string{domain.DefaultLocale}
	}

	out := *doc
	out.Locale = chain[0]
	out.Fields = make(map[string]any, len(doc.Fields))
	for name := range doc.Fields {
		for _, locale := range chain {
			if v, ok := doc.Field(name, locale); ok {
				out.Fields[name] = v
				break
			}
		}
	}
	return &out
}

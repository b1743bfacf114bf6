package shipment

import "strings"

// SkuCount is one distinct SKU of a row and how often it was listed.
type SkuCount struct {
	Key      string // lower-cased
	Original string // first occurrence as written
	Quantity int
}

// Aggregate is a row's SKU counts in order of first occurrence.
type Aggregate []SkuCount

// AggregateSkus collapses raw tokens into counts. Tokens may themselves hold
// several ';'-separated SKUs. Blank tokens are dropped.
func AggregateSkus(tokens []string) Aggregate {
	var agg Aggregate
	index := make(map[string]int)

	for _, raw := range tokens {
		for _, tok := range strings.Split(raw, ";") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			key := strings.ToLower(tok)
			if i, ok := index[key]; ok {
				agg[i].Quantity++
				continue
			}
			index[key] = len(agg)
			agg = append(agg, SkuCount{Key: key, Original: tok, Quantity: 1})
		}
	}
	return agg
}

// Tokens expands the aggregate back into one token per unit.
func (a Aggregate) Tokens() []string {
	var out []string
	for _, c := range a {
		for i := 0; i < c.Quantity; i++ {
			out = append(out, c.Original)
		}
	}
	return out
}

// Total is the number of units across all SKUs.
func (a Aggregate) Total() int {
	n := 0
	for _, c := range a {
		n += c.Quantity
	}
	return n
}

// Package symbols turns page-oriented symbol listings into lazy sequences.
package symbols

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	domrepo "MomentumScreener/internal/domain/repository"
)

// Page is one chunk of a symbol listing. An empty Next marks the last page.
type Page struct {
	Symbols []string
	Next    string
}

// PageFetcher retrieves the page starting at cursor; the first page has an empty cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

// Paged is a SymbolSource that pulls pages only as the consumer advances.
type Paged struct {
	fetcher PageFetcher
}

func NewPaged(f PageFetcher) *Paged { return &Paged{fetcher: f} }

// Symbols yields every symbol once per call. A fetch error is yielded once and ends the pass.
func (p *Paged) Symbols(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			page, err := p.fetcher.FetchPage(ctx, cursor)
			if err != nil {
				yield("", err)
				return
			}
			for _, s := range page.Symbols {
				if !yield(s, nil) {
					return
				}
			}
			if page.Next == "" {
				return
			}
			cursor = page.Next
		}
	}
}

// Static serves a fixed list in pages of pageSize.
type Static struct {
	symbols  []string
	pageSize int
}

// NewStatic normalizes the list (trim, upper-case, drop blanks).
func NewStatic(list []string, pageSize int) *Static {
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Static{symbols: out, pageSize: pageSize}
}

func (s *Static) FetchPage(_ context.Context, cursor string) (Page, error) {
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(s.symbols) {
			return Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = n
	}
	end := start + s.pageSize
	if end >= len(s.symbols) {
		return Page{Symbols: s.symbols[start:]}, nil
	}
	return Page{Symbols: s.symbols[start:end], Next: strconv.Itoa(end)}, nil
}

// Symbols makes Static usable directly as a SymbolSource.
func (s *Static) Symbols(ctx context.Context) iter.Seq2[string, error] {
	return NewPaged(s).Symbols(ctx)
}

// Take collects up to limit symbols from src; limit <= 0 means all.
// Duplicates are skipped.
func Take(ctx context.Context, src domrepo.SymbolSource, limit int) ([]string, error) {
	out := []string{}
	seen := map[string]struct{}{}
	for sym, err := range src.Symbols(ctx) {
		if err != nil {
			return nil, err
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

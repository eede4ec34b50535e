package pdf

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned by ExtractPages for an unusable page range.
var ErrInvalidRange = errors.New("pdf: invalid page range")

// ExtractPages copies pages first..last (1-indexed, inclusive) of doc into a
// new document.
func ExtractPages(doc *Document, first, last int) ([]byte, error) {
	total := doc.NumPages()
	switch {
	case first < 1:
		return nil, fmt.Errorf("%w: first page %d is before page 1", ErrInvalidRange, first)
	case last < first:
		return nil, fmt.Errorf("%w: last page %d is before first page %d", ErrInvalidRange, last, first)
	case last > total:
		return nil, fmt.Errorf("%w: last page %d exceeds page count %d", ErrInvalidRange, last, total)
	}

	indices := make([]int, 0, last-first+1)
	for i := first - 1; i < last; i++ {
		indices = append(indices, i)
	}

	b := NewBuilder()
	pages, err := b.CopyPages(doc, indices)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		b.AddPage(p)
	}
	return b.Save()
}

// MergeDocuments concatenates the pages of docs, in order, into a new
// document.
func MergeDocuments(docs []*Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to merge")
	}

	b := NewBuilder()
	for i, doc := range docs {
		pages, err := b.CopyPages(doc, AllPages(doc))
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		for _, p := range pages {
			b.AddPage(p)
		}
	}
	return b.Save()
}

// AllPages returns the 0-based indices of every page of doc.
func AllPages(doc *Document) []int {
	indices := make([]int, doc.NumPages())
	for i := range indices {
		indices[i] = i
	}
	return indices
}

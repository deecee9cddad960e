package resolver

import (
	"brdchat/internal/brd"
	"brdchat/internal/brderr"
)

var defaultChain = NewDefaultChain()

// HasPseudoTitle reports whether index 0 of doc is a document title rather than section 1.
func HasPseudoTitle(doc *brd.Document) bool {
	return doc.HasTitleSection()
}

// SectionCount is the highest valid user-visible section number.
func SectionCount(doc *brd.Document) int {
	return len(doc.ContentSections())
}

func offset(doc *brd.Document) int {
	if HasPseudoTitle(doc) {
		return 0
	}
	return 1
}

// IndexForNumber maps a user-visible section number to an array index.
func IndexForNumber(doc *brd.Document, n int) (int, error) {
	count := SectionCount(doc)
	if count == 0 {
		return -1, brderr.New(brderr.SectionNotFound, "Section %d not found: the document has no sections", n)
	}
	if n < 1 || n > count {
		return -1, brderr.New(brderr.SectionNotFound, "Invalid section number %d. Please choose 1-%d", n, count)
	}
	return n - offset(doc), nil
}

// NumberForIndex maps an array index back to its user-visible number. The
// title pseudo-section has number 0.
func NumberForIndex(doc *brd.Document, idx int) int {
	return idx + offset(doc)
}

// FindNumber returns the user-visible number of the first section whose title
// matches s. The title pseudo-section is never matched.
func FindNumber(doc *brd.Document, s string) (int, error) {
	sections := doc.ContentSections()
	titles := make([]string, len(sections))
	for i, sec := range sections {
		titles[i] = sec.Title
	}
	i, _ := defaultChain.Match(s, titles)
	if i < 0 {
		return 0, brderr.New(brderr.SectionNotFound, "Could not find section '%s'. Please use 'list' to see all sections or specify a section number.", s)
	}
	return i + 1, nil
}

// Resolve maps ref to an array index. Contextual and LastUpdated references
// carry no number of their own; callers resolve them through the context
// tracker first.
func Resolve(doc *brd.Document, ref Reference) (int, error) {
	switch ref.Kind {
	case ByNumber:
		return IndexForNumber(doc, ref.Number)
	case ByTitle:
		n, err := FindNumber(doc, ref.Title)
		if err != nil {
			return -1, err
		}
		return IndexForNumber(doc, n)
	case Contextual, LastUpdated:
		if ref.Number > 0 {
			return IndexForNumber(doc, ref.Number)
		}
		return -1, brderr.New(brderr.SectionNotFound, "No %s is known yet. Please specify a section number, e.g. 'show section 4'.", ref)
	default:
		return -1, brderr.New(brderr.SectionNotFound, "No section reference given")
	}
}

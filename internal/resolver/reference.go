package resolver

import "fmt"

type Kind int

const (
	ByNumber Kind = iota + 1
	ByTitle
	// Contextual means "the section currently being viewed".
	Contextual
	// LastUpdated means "the section most recently changed", as in
	// "show me the updated section". It is distinct from Contextual.
	LastUpdated
)

// Reference is how a user names a section.
type Reference struct {
	Kind   Kind
	Number int
	Title  string
}

func Number(n int) Reference {
	return Reference{Kind: ByNumber, Number: n}
}

func Title(s string) Reference {
	return Reference{Kind: ByTitle, Title: s}
}

func Here() Reference {
	return Reference{Kind: Contextual}
}

func Updated() Reference {
	return Reference{Kind: LastUpdated}
}

func (r Reference) String() string {
	switch r.Kind {
	case ByNumber:
		return fmt.Sprintf("section %d", r.Number)
	case ByTitle:
		return fmt.Sprintf("section %q", r.Title)
	case Contextual:
		return "current section"
	case LastUpdated:
		return "last updated section"
	default:
		return "no section"
	}
}

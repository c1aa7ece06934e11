package ports

import "context"

// FactInput names the item a fact is wanted for.
type FactInput struct {
	Item string
	// Lang is a BCP 47 tag; empty means English.
	Lang string
}

// FactOutput is the structured answer returned by the LLM.
type FactOutput struct {
	Fact  string `json:"fact"`
	Model string `json:"-"`
}

// FactTeller produces a short fun fact about a selected item.
type FactTeller interface {
	TellFact(ctx context.Context, in FactInput) (FactOutput, error)
}

package inference

import (
	"context"
)

// Alternative is a lower ranked candidate code.
type Alternative struct {
	MedicineCode string  `json:"medicine_code"`
	Confidence   float64 `json:"confidence"`
}

// Result is the structured guess returned for one image. Alternatives are
// conventionally ordered by descending confidence.
type Result struct {
	MedicineCode string        `json:"medicine_code"`
	Confidence   float64       `json:"confidence"`
	Description  string        `json:"description"`
	Alternatives []Alternative `json:"alternatives"`
}

// Classifier turns a stored image reference into a Result.
type Classifier interface {
	Classify(ctx context.Context, imageRef string) (*Result, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, imageRef string) (*Result, error)

func (f ClassifierFunc) Classify(ctx context.Context, imageRef string) (*Result, error) {
	return f(ctx, imageRef)
}

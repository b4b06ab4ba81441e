package inference

import (
	"context"
	"fmt"
	"path"
	"strings"
)

const (
	StubMedicineCode = "MED001"
	StubConfidence   = 0.85
)

// Stub is the placeholder classifier: it ignores image content and always
// returns the same guess.
type Stub struct{}

func NewStub() Stub {
	return Stub{}
}

func (Stub) Classify(ctx context.Context, imageRef string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Base(strings.TrimSpace(imageRef))
	return &Result{
		MedicineCode: StubMedicineCode,
		Confidence:   StubConfidence,
		Description:  fmt.Sprintf("Placeholder detection for %s. Integrate your AI model here.", name),
		Alternatives: []Alternative{
			{MedicineCode: "MED002", Confidence: 0.65},
			{MedicineCode: "MED003", Confidence: 0.45},
		},
	}, nil
}

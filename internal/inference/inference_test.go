package inference

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubReturnsPlaceholder(t *testing.T) {
	res, err := NewStub().Classify(context.Background(), "uploads/2026/03/04/abc/box.jpg")
	require.NoError(t, err)

	assert.Equal(t, "MED001", res.MedicineCode)
	assert.Equal(t, 0.85, res.Confidence)
	assert.Equal(t, "Placeholder detection for box.jpg. Integrate your AI model here.", res.Description)
	require.Len(t, res.Alternatives, 2)
	assert.Equal(t, Alternative{MedicineCode: "MED002", Confidence: 0.65}, res.Alternatives[0])
	assert.Equal(t, Alternative{MedicineCode: "MED003", Confidence: 0.45}, res.Alternatives[1])
}

func TestStubIsDeterministic(t *testing.T) {
	a, err := NewStub().Classify(context.Background(), "x.png")
	require.NoError(t, err)
	b, err := NewStub().Classify(context.Background(), "x.png")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStubHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStub().Classify(ctx, "x.png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidatorEncodeRoundTrip(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	res, err := NewStub().Classify(context.Background(), "box.jpg")
	require.NoError(t, err)

	data, err := v.Encode(res)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *res, decoded)
}

func TestValidatorRejectsBadShapes(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	cases := map[string]string{
		"missing code":        `{"confidence":0.5,"description":"","alternatives":[]}`,
		"confidence too high": `{"medicine_code":"MED001","confidence":1.5,"description":"","alternatives":[]}`,
		"negative confidence": `{"medicine_code":"MED001","confidence":-0.1,"description":"","alternatives":[]}`,
		"bad alternative":     `{"medicine_code":"MED001","confidence":0.5,"description":"","alternatives":[{"confidence":0.2}]}`,
		"not json":            `{`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, v.Validate([]byte(doc)))
		})
	}

	_, err = v.Encode(&Result{MedicineCode: "", Confidence: 0.3})
	assert.Error(t, err)
	_, err = v.Encode(nil)
	assert.Error(t, err)
}

func TestEncodeNormalisesNilAlternatives(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	data, err := v.Encode(&Result{MedicineCode: "MED999", Confidence: 0.4, Description: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"medicine_code":"MED999","confidence":0.4,"description":"x","alternatives":[]}`, string(data))
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAspectRatio(t *testing.T) {
	tests := []struct {
		key    AspectRatio
		width  int
		height int
	}{
		{AspectRatioSquare, 1328, 1328},
		{AspectRatioWide, 1664, 928},
		{AspectRatioTall, 928, 1664},
		{AspectRatioLandscape, 1472, 1140},
		{AspectRatioPortrait, 1140, 1472},
		// Unknown keys fall back to 16:9
		{AspectRatio("21:9"), 1664, 928},
		{AspectRatio(""), 1664, 928},
	}

	for _, tc := range tests {
		dims := ResolveAspectRatio(tc.key)
		assert.Equal(t, tc.width, dims.Width, "width for %q", tc.key)
		assert.Equal(t, tc.height, dims.Height, "height for %q", tc.key)
	}
}

func TestPositiveMagic(t *testing.T) {
	assert.Empty(t, PositiveMagic("en"))
	assert.NotEmpty(t, PositiveMagic("zh"))
	// Unknown languages get the English (empty) suffix
	assert.Empty(t, PositiveMagic("fr"))
}

func TestGenerationRequestRenderSpec(t *testing.T) {
	req := GenerationRequest{
		Prompt:            "photorealistic CCTV view of a farmyard gate",
		NegativePrompt:    "cartoon, watermark",
		AspectRatio:       AspectRatioWide,
		NumInferenceSteps: 30,
		TrueCFGScale:      4.0,
		Seed:              42,
		Language:          "zh",
	}

	spec := req.RenderSpec()
	assert.Equal(t, 1664, spec.Width)
	assert.Equal(t, 928, spec.Height)
	assert.Equal(t, req.Prompt+PositiveMagic("zh"), spec.Prompt)
	assert.Equal(t, "cartoon, watermark", spec.NegativePrompt)
	assert.Equal(t, 30, spec.NumInferenceSteps)
	assert.Equal(t, int64(42), spec.Seed)
}

func TestDatasetCaseValidate(t *testing.T) {
	c := &DatasetCase{TestCaseID: "OD-NEG-00007", Prompt: "empty porch scene"}
	assert.NoError(t, c.Validate())

	assert.ErrorIs(t, (&DatasetCase{Prompt: "x"}).Validate(), ErrEmptyCaseID)
	assert.ErrorIs(t, (&DatasetCase{TestCaseID: "x"}).Validate(), ErrEmptyCasePrompt)
}

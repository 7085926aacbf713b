package domain

// AspectRatio identifies a named preset mapping to fixed output pixel
// dimensions.
type AspectRatio string

// Supported aspect-ratio presets.
const (
	AspectRatioSquare       AspectRatio = "1:1"
	AspectRatioWide         AspectRatio = "16:9"
	AspectRatioTall         AspectRatio = "9:16"
	AspectRatioLandscape    AspectRatio = "4:3"
	AspectRatioPortrait     AspectRatio = "3:4"
	DefaultAspectRatio                  = AspectRatioWide
)

// Dimensions holds output image dimensions in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// aspectRatios maps each preset to its fixed pixel dimensions.
var aspectRatios = map[AspectRatio]Dimensions{
	AspectRatioSquare:    {Width: 1328, Height: 1328},
	AspectRatioWide:      {Width: 1664, Height: 928},
	AspectRatioTall:      {Width: 928, Height: 1664},
	AspectRatioLandscape: {Width: 1472, Height: 1140},
	AspectRatioPortrait:  {Width: 1140, Height: 1472},
}

// ResolveAspectRatio returns the pixel dimensions for the given preset key.
// Unknown keys fall back to the 16:9 preset.
func ResolveAspectRatio(key AspectRatio) Dimensions {
	if dims, ok := aspectRatios[key]; ok {
		return dims
	}
	return aspectRatios[DefaultAspectRatio]
}

// positiveMagic maps a language tag to a quality suffix appended to the
// prompt before rendering. English prompts get no suffix.
var positiveMagic = map[string]string{
	"en": "",
	"zh": " 超清，4K，电影级构图",
}

// PositiveMagic returns the prompt suffix for the given language tag,
// defaulting to the English (empty) suffix for unknown tags.
func PositiveMagic(language string) string {
	if suffix, ok := positiveMagic[language]; ok {
		return suffix
	}
	return positiveMagic["en"]
}

// GenerationRequest describes one image to render. It is immutable once
// submitted; defaults are applied at the API boundary, not here.
type GenerationRequest struct {
	Prompt            string      `json:"prompt"`
	NegativePrompt    string      `json:"negative_prompt"`
	AspectRatio       AspectRatio `json:"aspect_ratio"`
	NumInferenceSteps int         `json:"num_inference_steps"`
	TrueCFGScale      float64     `json:"true_cfg_scale"`
	Seed              int64       `json:"seed"`
	Language          string      `json:"language"`
	CallbackURL       string      `json:"callback_url,omitempty"`
}

// RenderSpec is the fully resolved input handed to the diffusion pipeline:
// the prompt with its language suffix applied and the aspect-ratio key
// resolved to pixel dimensions.
func (r GenerationRequest) RenderSpec() RenderSpec {
	dims := ResolveAspectRatio(r.AspectRatio)
	return RenderSpec{
		Prompt:            r.Prompt + PositiveMagic(r.Language),
		NegativePrompt:    r.NegativePrompt,
		Width:             dims.Width,
		Height:            dims.Height,
		NumInferenceSteps: r.NumInferenceSteps,
		TrueCFGScale:      r.TrueCFGScale,
		Seed:              r.Seed,
	}
}

// RenderSpec is the pipeline-facing form of a generation request.
type RenderSpec struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	TrueCFGScale      float64 `json:"true_cfg_scale"`
	Seed              int64   `json:"seed"`
}

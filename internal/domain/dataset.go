package domain

import "errors"

// Common validation errors for DatasetCase
var (
	ErrEmptyCaseID     = errors.New("dataset case ID cannot be empty")
	ErrEmptyCasePrompt = errors.New("dataset case prompt cannot be empty")
)

// DatasetCase is one record of the synthetic object-detection dataset,
// parsed from a JSONL file. The test case ID doubles as the task ID and the
// output PNG filename stem.
type DatasetCase struct {
	TestCaseID        string          `json:"test_case_id"`
	ScenarioCategory  string          `json:"scenario_category"`
	TestSubcategory   string          `json:"test_subcategory,omitempty"`
	PropertyType      string          `json:"property_type,omitempty"`
	ODTypePrimary     string          `json:"od_type_primary,omitempty"`
	ODState           string          `json:"od_state,omitempty"`
	MotionType        string          `json:"motion_type,omitempty"`
	Prompt            string          `json:"prompt"`
	NegativePrompt    string          `json:"negative_prompt,omitempty"`
	Seed              *int64          `json:"seed,omitempty"`
	ExpectedDetection map[string]bool `json:"expected_detection,omitempty"`
	RiskTags          []string        `json:"risk_tags,omitempty"`
}

// Validate checks the fields the submitter depends on.
func (c *DatasetCase) Validate() error {
	if c.TestCaseID == "" {
		return ErrEmptyCaseID
	}

	if c.Prompt == "" {
		return ErrEmptyCasePrompt
	}

	return nil
}

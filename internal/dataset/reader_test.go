package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

func TestReadCases(t *testing.T) {
	input := strings.Join([]string{
		`{"test_case_id":"case_0001","prompt":"porch at dusk","seed":17}`,
		``,
		`{"test_case_id":"case_0002","prompt":"driveway","negative_prompt":"blurry","expected_detection":{"person":true,"vehicle":false}}`,
	}, "\n")

	cases, err := ReadCases(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "case_0001", cases[0].TestCaseID)
	require.NotNil(t, cases[0].Seed)
	assert.Equal(t, int64(17), *cases[0].Seed)

	assert.Equal(t, "case_0002", cases[1].TestCaseID)
	assert.Nil(t, cases[1].Seed)
	assert.Equal(t, map[string]bool{"person": true, "vehicle": false}, cases[1].ExpectedDetection)
}

func TestReadCases_MalformedLine(t *testing.T) {
	input := `{"test_case_id":"case_0001","prompt":"x"}` + "\n" + `{broken`

	_, err := ReadCases(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadCases_InvalidCase(t *testing.T) {
	input := `{"test_case_id":"","prompt":"x"}`

	_, err := ReadCases(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyCaseID)
	assert.Contains(t, err.Error(), "line 1")
}

func TestReadCasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.jsonl")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"test_case_id":"case_0001","prompt":"x"}`+"\n"), 0o644))

	cases, err := ReadCasesFile(path)
	require.NoError(t, err)
	assert.Len(t, cases, 1)

	_, err = ReadCasesFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

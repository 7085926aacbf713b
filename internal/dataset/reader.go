package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// ReadCases parses a JSONL stream of dataset cases, one JSON object per
// line. Blank lines are skipped; malformed lines fail with their line
// number.
func ReadCases(r io.Reader) ([]domain.DatasetCase, error) {
	scanner := bufio.NewScanner(r)
	// Prompts can be long; the default 64 KiB token limit is too tight.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cases []domain.DatasetCase
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var c domain.DatasetCase
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse dataset case: %w", lineNo, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: invalid dataset case: %w", lineNo, err)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	return cases, nil
}

// ReadCasesFile opens path and parses it with ReadCases.
func ReadCasesFile(path string) ([]domain.DatasetCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	return ReadCases(f)
}

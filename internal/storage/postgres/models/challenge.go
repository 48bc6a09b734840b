package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TestCase is one graded case in a challenge's test suite.
type TestCase struct {
	InputJSON      json.RawMessage `json:"input"`
	ExpectedJSON   json.RawMessage `json:"expected_output"`
	Weight         int             `json:"weight"`
	Hidden         bool            `json:"hidden"`
}

// Challenge is a durable coding problem, with its full test suite
// (visible and hidden) stored as a JSONB column — the same blob-column
// pattern the teacher uses for GhostReplay.BehavioralData.
type Challenge struct {
	ID                 uuid.UUID       `db:"id"`
	Title              string          `db:"title"`
	Difficulty         string          `db:"difficulty"`
	TestCases          json.RawMessage `db:"test_cases"`
	ReferenceSolution  string          `db:"reference_solution"`
	ReferenceLanguage  string          `db:"reference_language"`
}

// GetTestCases unmarshals the challenge's stored test suite.
func (c *Challenge) GetTestCases() ([]TestCase, error) {
	var cases []TestCase
	if err := json.Unmarshal(c.TestCases, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// SetTestCases marshals a test suite into the challenge's stored column.
func (c *Challenge) SetTestCases(cases []TestCase) error {
	data, err := json.Marshal(cases)
	if err != nil {
		return err
	}
	c.TestCases = data
	return nil
}

package hint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactReplacesCaseInsensitiveMatch(t *testing.T) {
	tests := []TestCase{
		{InputJSON: `[1,2,3]`, ExpectedJSON: `"HelloWorld"`},
	}

	content := `Try returning "helloworld" from the function, given [1,2,3] as input.`
	redacted := redact(content, tests)

	assert.NotContains(t, redacted, "helloworld")
	assert.NotContains(t, redacted, "[1,2,3]")
	assert.Contains(t, redacted, "[REDACTED]")
}

func TestRedactIgnoresShortStrings(t *testing.T) {
	tests := []TestCase{
		{InputJSON: "1", ExpectedJSON: "ok"},
	}

	content := "the answer is 1 and status is ok"
	redacted := redact(content, tests)

	assert.Equal(t, content, redacted, "strings of length <= 2 must not trigger redaction")
}

func TestRedactSubstringHandlesRegexMetacharacters(t *testing.T) {
	secret := `{"x": 1.5}`
	content := `the expected output is {"x": 1.5} exactly`

	redacted := redactSubstring(content, secret)

	assert.NotContains(t, redacted, secret)
	assert.Contains(t, redacted, "[REDACTED]")
}

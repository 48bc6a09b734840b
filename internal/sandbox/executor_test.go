package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunnersCoverAllSupportedLanguages(t *testing.T) {
	for _, lang := range []string{"PYTHON3", "JAVASCRIPT", "GO", "JAVA", "CPP"} {
		spec, ok := runners[lang]
		assert.True(t, ok, "expected a runner for %s", lang)
		assert.NotEmpty(t, spec.fileName)
		assert.NotNil(t, spec.command)
	}
}

func TestRunnerCommandsBuildWithoutPanicking(t *testing.T) {
	for lang, spec := range runners {
		cmd := spec.command("/tmp/run", "/tmp/run/"+spec.fileName)
		assert.NotNil(t, cmd, "command builder for %s returned nil", lang)
		assert.NotEmpty(t, cmd.Args)
	}
}

func TestUnsupportedLanguageIsRejected(t *testing.T) {
	_, ok := runners["RUBY"]
	assert.False(t, ok)
}

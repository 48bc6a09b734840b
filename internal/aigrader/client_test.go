package aigrader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeduel/match-core/internal/apperr"
)

func TestAnalyzeCodeQualitySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyze", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "PYTHON3", req.Language)

		_ = json.NewEncoder(w).Encode(QualityResult{Score: 85, Breakdown: map[string]int{"quality": 60, "creativity": 25}, Feedback: "solid"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 2*time.Second, logrus.New())
	result, err := client.AnalyzeCodeQuality(context.Background(), "print(1)", "PYTHON3", "two-sum")

	require.NoError(t, err)
	assert.Equal(t, 85, result.Score)
	assert.Equal(t, "solid", result.Feedback)
}

func TestGenerateHintFailureWrapsGraderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, logrus.New())
	_, err := client.GenerateHint(context.Background(), "code", "PYTHON3", "ctx", 1)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeGraderUnavailable, apperr.CodeOf(err))
}

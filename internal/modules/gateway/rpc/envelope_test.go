package rpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeduel/match-core/internal/apperr"
)

func TestSuccessResponseMarshalsData(t *testing.T) {
	data, err := successResponse(map[string]interface{}{"joined": true})
	require.NoError(t, err)

	var resp envelopeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestErrResponseCarriesTypedCode(t *testing.T) {
	data, err := errResponse(apperr.New(apperr.CodeMatchNotActive, "match has ended"))
	require.NoError(t, err)

	var resp envelopeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(apperr.CodeMatchNotActive), resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "match has ended")
}

func TestErrResponseDefaultsToInternalForUntypedErrors(t *testing.T) {
	data, err := errResponse(errors.New("boom"))
	require.NoError(t, err)

	var resp envelopeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, string(apperr.CodeInternal), resp.Error.Code)
}

func TestBadRequestUsesInvalidRequestCode(t *testing.T) {
	data, err := badRequest("missing field")
	require.NoError(t, err)

	var resp envelopeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, string(apperr.CodeInvalidRequest), resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "missing field")
}

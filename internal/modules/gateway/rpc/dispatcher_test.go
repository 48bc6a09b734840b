package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeduel/match-core/internal/apperr"
)

func TestDispatchUnrecognizedEventReturnsInvalidRequest(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	d := NewDispatcher(nil, nil, nil, nil, nil, nil, logger)

	data, err := d.Dispatch(context.Background(), "conn-1", uuid.New(), "not_a_real_event", nil)
	require.NoError(t, err)

	var resp envelopeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(apperr.CodeInvalidRequest), resp.Error.Code)
}

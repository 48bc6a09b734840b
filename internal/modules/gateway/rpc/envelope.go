// Package rpc adapts the duel core's services to the Centrifugo RPC
// proxy: each exported Handle* method takes the raw JSON payload of
// one client→server event (per spec §6.1) and returns the raw JSON
// payload to hand back to the caller, following the teacher's
// `(ctx, data []byte) ([]byte, error)` handler shape.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/codeduel/match-core/internal/apperr"
)

// envelopeResponse is the standard {success, data, error} shape every
// handler returns, mirroring the teacher's per-RPC response structs
// but generalized to one type since every duel RPC has this shape.
type envelopeResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func successResponse(data interface{}) ([]byte, error) {
	return json.Marshal(envelopeResponse{Success: true, Data: data})
}

// errResponse renders err as the typed {code,message} wire shape from
// spec §7, defaulting to INTERNAL when err isn't an *apperr.Error.
func errResponse(err error) ([]byte, error) {
	resp := envelopeResponse{
		Success: false,
		Error: &errorBody{
			Code:    string(apperr.CodeOf(err)),
			Message: err.Error(),
		},
	}
	data, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal error response: %w", marshalErr)
	}
	return data, nil
}

func badRequest(message string) ([]byte, error) {
	return errResponse(apperr.New(apperr.CodeInvalidRequest, message))
}

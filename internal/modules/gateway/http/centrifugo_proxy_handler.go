package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/auth"
	"github.com/codeduel/match-core/internal/modules/gateway/rpc"
	"github.com/codeduel/match-core/internal/modules/matchfsm"
	"github.com/codeduel/match-core/internal/modules/matchmaker"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/modules/session"
)

// CentrifugoProxyHandler implements the three Centrifugo proxy webhooks
// this deployment needs: connect (authenticates the websocket using the
// Centrifugo token issued at registration and binds the player into the
// Session Directory), disconnect (unbinds it, deferring cleanup through
// the §4.1 grace window) and rpc (routes every client→server event in
// spec §6.1 into the Dispatcher).
type CentrifugoProxyHandler struct {
	jwt        *auth.JWTManager
	dispatcher *rpc.Dispatcher
	sessions   session.Directory
	matchmaker matchmaker.MatchmakerService
	matchState matchstate.Store
	fsm        matchfsm.FSM
	logger     *logrus.Logger
}

// NewCentrifugoProxyHandler creates a new Centrifugo proxy handler.
func NewCentrifugoProxyHandler(jwtManager *auth.JWTManager, dispatcher *rpc.Dispatcher, sessions session.Directory, matchmakerSvc matchmaker.MatchmakerService, matchState matchstate.Store, fsm matchfsm.FSM, logger *logrus.Logger) *CentrifugoProxyHandler {
	return &CentrifugoProxyHandler{
		jwt:        jwtManager,
		dispatcher: dispatcher,
		sessions:   sessions,
		matchmaker: matchmakerSvc,
		matchState: matchState,
		fsm:        fsm,
		logger:     logger,
	}
}

// RegisterRoutes registers the Centrifugo proxy webhook routes.
func (h *CentrifugoProxyHandler) RegisterRoutes(r chi.Router) {
	r.Route("/centrifugo", func(r chi.Router) {
		r.Post("/connect", h.Connect)
		r.Post("/disconnect", h.Disconnect)
		r.Post("/rpc", h.RPC)
	})
}

type connectRequest struct {
	Client string `json:"client"`
}

type connectResult struct {
	User string `json:"user"`
}

type connectResponse struct {
	Result *connectResult `json:"result,omitempty"`
	Error  *proxyError    `json:"error,omitempty"`
}

type proxyError struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

// Connect authenticates a new Centrifugo connection. The client's
// Centrifugo token travels in the Authorization header exactly as it
// does for the HTTP API, since both are issued by the same
// identity.Service.
func (h *CentrifugoProxyHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, connectResponse{Error: &proxyError{Code: 1000, Message: "invalid connect request"}})
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		h.writeJSON(w, connectResponse{Error: &proxyError{Code: 1001, Message: "missing token"}})
		return
	}

	claims, err := h.jwt.ValidateCentrifugoToken(token)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Debug("centrifugo connect: invalid token")
		h.writeJSON(w, connectResponse{Error: &proxyError{Code: 1002, Message: "invalid token"}})
		return
	}

	if err := h.sessions.Bind(r.Context(), claims.PlayerID, req.Client); err != nil {
		h.logger.WithFields(logrus.Fields{"player_id": claims.PlayerID, "error": err}).Error("failed to bind session on connect")
		h.writeJSON(w, connectResponse{Error: &proxyError{Code: 1005, Message: "internal error"}})
		return
	}

	h.writeJSON(w, connectResponse{Result: &connectResult{User: claims.PlayerID.String()}})
}

type disconnectRequest struct {
	Client string `json:"client"`
}

type disconnectResult struct{}

type disconnectResponse struct {
	Result *disconnectResult `json:"result,omitempty"`
	Error  *proxyError       `json:"error,omitempty"`
}

// Disconnect unbinds the connection from the Session Directory. If no
// rebind happens within the grace window, onSessionExpired runs the
// downstream cleanup per §4.1: leaving the matchmaking queue or
// aborting an in-progress match.
func (h *CentrifugoProxyHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req disconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, disconnectResponse{Error: &proxyError{Code: 1000, Message: "invalid disconnect request"}})
		return
	}

	h.sessions.Unbind(r.Context(), req.Client, h.onSessionExpired)

	h.writeJSON(w, disconnectResponse{Result: &disconnectResult{}})
}

// onSessionExpired runs once a disconnect's grace window has elapsed
// with no rebind for playerID. A player still in the matchmaking queue
// is removed from it; a player with a live match is treated as having
// abandoned it.
func (h *CentrifugoProxyHandler) onSessionExpired(ctx context.Context, playerID uuid.UUID) {
	if err := h.matchmaker.LeaveQueue(ctx, playerID); err != nil && apperr.CodeOf(err) != apperr.CodeNotInQueue {
		h.logger.WithFields(logrus.Fields{"player_id": playerID, "error": err}).Warn("failed to remove disconnected player from queue")
	}

	matchID, ok, err := h.matchState.CurrentMatchFor(ctx, playerID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"player_id": playerID, "error": err}).Warn("failed to resolve active match for disconnected player")
		return
	}
	if !ok {
		return
	}

	h.logger.WithFields(logrus.Fields{"player_id": playerID, "match_id": matchID}).Info("aborting match after disconnect grace window expired")
	h.fsm.AbortMatch(ctx, matchID, "disconnect")
}

type rpcRequest struct {
	Client string          `json:"client"`
	User   string          `json:"user"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data"`
}

type rpcResult struct {
	Data json.RawMessage `json:"data"`
}

type rpcResponse struct {
	Result *rpcResult  `json:"result,omitempty"`
	Error  *proxyError `json:"error,omitempty"`
}

// RPC routes a proxied client RPC call into the Dispatcher.
func (h *CentrifugoProxyHandler) RPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, rpcResponse{Error: &proxyError{Code: 1000, Message: "invalid rpc request"}})
		return
	}

	playerID, err := uuid.Parse(req.User)
	if err != nil {
		h.writeJSON(w, rpcResponse{Error: &proxyError{Code: 1003, Message: "invalid user"}})
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req.Client, playerID, req.Method, req.Data)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"method": req.Method, "error": err}).Error("rpc dispatch failed")
		h.writeJSON(w, rpcResponse{Error: &proxyError{Code: 1004, Message: "internal error"}})
		return
	}

	h.writeJSON(w, rpcResponse{Result: &rpcResult{Data: result}})
}

func (h *CentrifugoProxyHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Error("failed to encode centrifugo proxy response")
	}
}

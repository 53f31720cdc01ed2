package surrealtodo

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/codec"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/engine"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

const (
	maxBodyBytes = 1 << 20

	mediaJSON = "application/json"
	mediaCBOR = "application/cbor"

	reasonUnauthenticated = "unauthenticated"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Delivery string `json:"delivery"`
	ReadOnly bool   `json:"readOnly"`
	Sessions int    `json:"sessions"`
	Online   int    `json:"online"`
}

type frozenRequest struct {
	Frozen *bool `json:"frozen"`
}

type shareRequest struct {
	Email string `json:"email"`
}

// requestCodec picks the body decoder from Content-Type. Anything other
// than CBOR is read as JSON.
func requestCodec(r *http.Request) codec.Codec {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mt == mediaCBOR {
		return codec.CBOR{}
	}
	return codec.JSON{}
}

// responseCodec honours an Accept header asking for CBOR.
func responseCodec(r *http.Request) codec.Codec {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == mediaCBOR {
			return codec.CBOR{}
		}
	}
	return codec.JSON{}
}

func mediaTypeOf(c codec.Codec) string {
	if c.Name() == codec.NameCBOR {
		return mediaCBOR
	}
	return mediaJSON
}

// respond writes payload with the codec the client asked for. A nil payload
// writes only the status.
func respond(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	c := responseCodec(r)
	body, err := c.Marshal(payload)
	if err != nil {
		c = codec.JSON{}
		status = http.StatusInternalServerError
		body, _ = c.Marshal(errorResponse{Error: "failed to encode response", Reason: engine.ReasonInternal})
	}
	w.Header().Set("Content-Type", mediaTypeOf(c))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, reason, message string) {
	respond(w, r, status, errorResponse{Error: message, Reason: reason})
}

// statusFor maps an engine error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, engine.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondError(w, r, status, engine.Reason(err), engine.Message(err))
}

// decode reads a size-limited request body into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return requestCodec(r).NewDecoder(body).Decode(dst)
}

// caller returns the authenticated user, writing a 401 when there is none.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, reasonUnauthenticated, "authentication required")
	}
	return userID, ok
}

// handleHealth reports liveness plus a few counters. It needs no caller.
//
// HTTP Method: GET
// Endpoints: /health, /api/health
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, healthResponse{
		Status:   "healthy",
		Store:    string(a.config.Store),
		Delivery: string(a.engine.Mode()),
		ReadOnly: a.IsReadOnly(),
		Sessions: a.hub.SessionCount(),
		Online:   a.presence.Len(),
	})
}

// handleCreateList creates an empty list owned by the caller.
//
// HTTP Method: POST
// Endpoint: /api/lists
//
// Response:
//   - 201 Created: the new list
//   - 401 Unauthorized: no caller
func (a *App) handleCreateList(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := a.engine.Create(r.Context(), userID)
	if err != nil {
		a.respondEngineError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, list)
}

// handleGetList returns a list the caller is a member of.
//
// HTTP Method: GET
// Endpoint: /api/lists/{id}
func (a *App) handleGetList(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := a.engine.Get(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		a.respondEngineError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

// handleUpdateList applies a patch and pushes the result to every reachable
// member. Frozen lists answer 423 Locked.
//
// HTTP Method: PATCH
// Endpoint: /api/lists/{id}
// Content-Type: application/json or application/cbor
//
// Usage example:
//
//	PATCH /api/lists/7b0c...
//	{
//	  "title": "Groceries",
//	  "items": [{"id": "a", "index": 0, "title": "milk", "subtasks": []}]
//	}
func (a *App) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var patch models.ListPatch
	if err := decode(w, r, &patch); err != nil {
		respondError(w, r, http.StatusBadRequest, engine.ReasonInvalidArgument, "invalid request payload")
		return
	}
	list, err := a.engine.ApplyUpdate(r.Context(), mux.Vars(r)["id"], userID, patch)
	if err != nil {
		a.respondEngineError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

// handleDeleteList removes a list. Only its owner may do so.
//
// HTTP Method: DELETE
// Endpoint: /api/lists/{id}
//
// Response:
//   - 204 No Content: deleted
//   - 403 Forbidden: caller is not the owner
//   - 404 Not Found: no such list
func (a *App) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	if err := a.engine.Delete(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		a.respondEngineError(w, r, err)
		return
	}
	respond(w, r, http.StatusNoContent, nil)
}

// handleSetFrozen locks or unlocks a list. Owner only.
//
// HTTP Method: PUT
// Endpoint: /api/lists/{id}/frozen
// Body: {"frozen": true}
func (a *App) handleSetFrozen(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req frozenRequest
	if err := decode(w, r, &req); err != nil || req.Frozen == nil {
		respondError(w, r, http.StatusBadRequest, engine.ReasonInvalidArgument, "frozen must be a boolean")
		return
	}
	list, err := a.engine.SetFrozen(r.Context(), mux.Vars(r)["id"], userID, *req.Frozen)
	if err != nil {
		a.respondEngineError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

// handleShareList adds the directory user with the given email to the list.
//
// HTTP Method: POST
// Endpoint: /api/lists/{id}/share
// Body: {"email": "bob@example.com"}
//
// Response:
//   - 200 OK: the updated list
//   - 404 Not Found: no such list, or no user with that email
//   - 409 Conflict: the user is already a member
//   - 423 Locked: the list is frozen
func (a *App) handleShareList(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req shareRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, engine.ReasonInvalidArgument, "invalid request payload")
		return
	}
	list, err := a.engine.Share(r.Context(), mux.Vars(r)["id"], userID, req.Email)
	if err != nil {
		a.respondEngineError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

// handleListsForUser returns every list the user participates in, oldest
// first. Callers may only ask about themselves.
//
// HTTP Method: GET
// Endpoint: /api/users/{userId}/lists
func (a *App) handleListsForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	if mux.Vars(r)["userId"] != userID {
		respondError(w, r, http.StatusForbidden, engine.ReasonForbidden, "cannot read another user's lists")
		return
	}
	lists, err := a.engine.ListByParticipant(r.Context(), userID)
	if err != nil {
		a.respondEngineError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, lists)
}

package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSession_MergesCarts(t *testing.T) {
	srv := newTestServer(t)

	// The messaging channel already has a session for this identity.
	botRec := srv.do(t, http.MethodGet, "/api/v1/cart/session?identity=%2B4512345678", nil)
	var bot SessionResponseDTO
	require.NoError(t, json.NewDecoder(botRec.Body).Decode(&bot))
	srv.do(t, http.MethodPost, "/api/v1/cart/"+bot.SessionID+"/items", addItemBody("p1", 2, 10))

	// The web session holds its own cart.
	webID := srv.newSession(t)
	srv.do(t, http.MethodPost, "/api/v1/cart/"+webID+"/items", addItemBody("p1", 1, 10))
	srv.do(t, http.MethodPost, "/api/v1/cart/"+webID+"/items", addItemBody("p2", 3, 5))

	rec := srv.do(t, http.MethodPost, "/api/v1/link/session", LinkSessionRequestDTO{
		Identity:  "+4512345678",
		SessionID: webID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LinkSessionResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, webID, resp.SessionID)
	assert.Equal(t, "+4512345678", resp.LinkedIdentity)
	assert.Equal(t, 6, resp.ItemCount)

	// Both channels now see the one merged cart.
	cartRec := srv.do(t, http.MethodGet, "/api/v1/cart/"+webID, nil)
	summary := decodeSummary(t, cartRec)
	byProduct := map[string]int{}
	for _, l := range summary.Lines {
		byProduct[l.ProductID] = l.Quantity
	}
	assert.Equal(t, map[string]int{"p1": 3, "p2": 3}, byProduct)
}

func TestLinkSession_UnknownSession(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/link/session", LinkSessionRequestDTO{
		Identity:  "+4512345678",
		SessionID: "session-nope",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLinkSession_MissingIdentity(t *testing.T) {
	srv := newTestServer(t)
	sessionID := srv.newSession(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/link/session", LinkSessionRequestDTO{
		SessionID: sessionID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionByIdentity(t *testing.T) {
	srv := newTestServer(t)

	botRec := srv.do(t, http.MethodGet, "/api/v1/cart/session?identity=%2B4512345678", nil)
	var bot SessionResponseDTO
	require.NoError(t, json.NewDecoder(botRec.Body).Decode(&bot))
	srv.do(t, http.MethodPost, "/api/v1/cart/"+bot.SessionID+"/items", addItemBody("p1", 2, 10))

	rec := srv.do(t, http.MethodGet, "/api/v1/link/session/%2B4512345678", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeSummary(t, rec)
	assert.Equal(t, bot.SessionID, summary.SessionID)
	assert.Equal(t, 2, summary.ItemCount)
}

func TestSessionByIdentity_Unlinked(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/link/session/%2B4500000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingLinks_Handshake(t *testing.T) {
	srv := newTestServer(t)
	sessionID := srv.newSession(t)

	// Storefront offers its session for linking.
	rec := srv.do(t, http.MethodPost, "/api/v1/link/pending", PendingLinkRequestDTO{SessionID: sessionID})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The bot polls the pending list.
	rec = srv.do(t, http.MethodGet, "/api/v1/link/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		PendingSessions []string `json:"pending_sessions"`
		Count           int      `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listResp))
	assert.Equal(t, []string{sessionID}, listResp.PendingSessions)

	// After linking, the entry is removed.
	rec = srv.do(t, http.MethodDelete, "/api/v1/link/pending/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/v1/link/pending/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingLinks_MissingSessionID(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/link/pending", PendingLinkRequestDTO{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

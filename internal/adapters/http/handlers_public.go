package httpadapter

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
)

func (rt *Router) handleGetPage(w http.ResponseWriter, r *http.Request) {
	view, err := rt.pages.View(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) handleStartChatSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.chat.StartSession(r.Context(), r.PathValue("slug"), hashRemoteAddr(r), r.UserAgent())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) handlePostChatMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	answer, err := rt.chat.PostMessage(r.Context(), r.PathValue("sessionID"), req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) handleListChatMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := rt.chat.Messages(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// hashRemoteAddr stores a digest of the caller address rather than the
// address itself.
func hashRemoteAddr(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if host == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:])
}

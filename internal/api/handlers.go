package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Protected handlers
func (a *API) handleSessionPairings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["session_id"]
	if sessionID == "" {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	pairings, err := a.db.PairingsBySession(context.Background(), sessionID)
	if err != nil {
		http.Error(w, "failed to load pairings", http.StatusInternalServerError)
		return
	}
	if len(pairings) == 0 {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pairings)
}

func (a *API) handleSessionStakes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["session_id"]
	if sessionID == "" {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	infos, err := a.db.StakeInfoBySession(context.Background(), sessionID)
	if err != nil {
		http.Error(w, "failed to load stakes", http.StatusInternalServerError)
		return
	}
	if len(infos) == 0 {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(infos)
}

func (a *API) handlePlayerBalances(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value("claims").(*Claims)
	vars := mux.Vars(r)
	guildID, err := strconv.ParseInt(vars["guild_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid guild_id", http.StatusBadRequest)
		return
	}
	userID := vars["user_id"]

	// Verify user has access to guild
	if !a.userHasGuildAccess(claims.AccessToken, guildID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	balances, err := a.db.BalancesForPlayer(context.Background(), guildID, userID)
	if err != nil {
		http.Error(w, "failed to load balances", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"guild_id": vars["guild_id"],
		"user_id":  userID,
		"balances": balances,
	})
}

// Helper functions
func (a *API) userHasGuildAccess(accessToken string, guildID int64) bool {
	guilds, err := a.getDiscordGuilds(accessToken)
	if err != nil {
		return false
	}

	for _, guild := range guilds {
		id, _ := strconv.ParseInt(guild.ID, 10, 64)
		if id == guildID {
			return true
		}
	}
	return false
}

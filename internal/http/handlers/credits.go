package handlers

import (
	"net/http"
)

// Credits returns the current usable balance. The value is fetched fresh on
// every call; negative vendor totals are clamped to zero for display.
func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Service.Balance(r.Context())
	if err != nil {
		a.writeGenerationError(w, r, err, "")
		return
	}
	credits := snap.Available
	if credits < 0 {
		credits = 0
	}
	a.json(w, http.StatusOK, map[string]any{"credits": credits})
}

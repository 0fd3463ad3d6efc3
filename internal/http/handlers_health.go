package httpx

import (
	"net/http"
)

type healthResponse struct {
	Status     string `json:"status"`
	Background int    `json:"background_jobs"`
}

// healthHandler reports readiness along with the number of background
// deliveries still running. HEAD requests get headers only.
func healthHandler(inFlight func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		resp := healthResponse{Status: "ok"}
		if inFlight != nil {
			resp.Background = inFlight()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

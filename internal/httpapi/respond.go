package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// setCacheHeaders marks a successful aggregation as cacheable by shared
// caches for maxAge, then servable stale for twice that while revalidating.
func setCacheHeaders(w http.ResponseWriter, maxAge time.Duration) {
	secs := int(maxAge.Seconds())
	if secs <= 0 {
		w.Header().Set("Cache-Control", "no-store")
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", secs, 2*secs))
}

// respond writes the body and counts the response for endpoint.
func (d Dependencies) respond(w http.ResponseWriter, endpoint string, code int, body any) {
	if d.Metrics != nil {
		d.Metrics.EndpointResponses.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	}
	writeJSON(w, code, body)
}

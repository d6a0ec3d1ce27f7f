// Package health exposes the service's liveness endpoint.
package health

import (
	"fmt"
	"net/http"
)

// Liveness reports that the process is up and able to serve requests.
// There is no external dependency to probe: the cache store is a local
// filesystem directory, created on demand, and the upstream taxonomy
// sources are consulted per-request rather than held open.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	}
}

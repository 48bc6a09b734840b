package middleware

import "net/http"

// CORS creates a permissive cross-origin middleware for the web and
// mobile duel clients. The teacher repo references an equivalent
// gatewayMiddleware.CORS() from its route setup without a third-party
// CORS package in its require block, so this stays stdlib-only here
// too — there is no corpus CORS library to ground this on.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

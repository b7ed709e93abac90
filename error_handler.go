package bearerauth

import (
	"net/http"
)

// UnauthorizedDetail is the only failure message a client ever sees.
const UnauthorizedDetail = "Could not validate credentials"

// ErrorHandler is a handler which is called when a request is rejected.
// err matches core.ErrUnauthenticated; core.ErrorCode(err) tells why. Custom
// handlers should not write err's cause to the response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler answers every rejection the same way: 401 with a
// Bearer challenge and a fixed JSON body. Missing, malformed and invalid
// tokens, and key retrieval failures, are indistinguishable to the client.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	WriteUnauthorized(w)
}

// WriteUnauthorized writes the standard 401 response.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"` + UnauthorizedDetail + `"}`))
}

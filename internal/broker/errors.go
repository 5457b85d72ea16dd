package broker

import (
	"net/http"

	"github.com/coachpo/logbroker/internal/brokererr"
	"github.com/coachpo/logbroker/internal/jsonenc"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeErr renders a *brokererr.E as the broker's JSON error envelope. The
// body carries the error's Kind (the machine-readable token clients match
// on, e.g. "bad_request", "unauthorized_service") rather than Reason, which
// is retained only for server-side logging. Errors of any other type are
// treated as internal.
func writeErr(w http.ResponseWriter, err error) {
	e, ok := err.(*brokererr.E)
	if !ok {
		e = brokererr.Internal(err)
	}
	_ = jsonenc.WriteJSON(w, brokererr.HTTPStatus(e.Kind), errorBody{Error: string(e.Kind)})
}

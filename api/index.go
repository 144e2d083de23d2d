package handler

import (
	"net/http"

	"tradedesk-backend/bootstrap"
)

var api = bootstrap.NewLazy()

// Handler receives every rewritten request on the serverless host.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()
	api.ServeHTTP(w, r)
}

package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/cienspay/cienspay-web/guard"
)

const formIDField = "form_id"

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	guard.Redirect(w, r, path)
}

// redirectWithFlash redirects and shows msg as a success banner on the next page
func redirectWithFlash(w http.ResponseWriter, r *http.Request, path, msg string) {
	guard.Redirect(w, r, path+"?"+url.Values{queryFlash: {msg}}.Encode())
}

// redirectWithError redirects and shows msg as an error banner on the next page
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	guard.Redirect(w, r, path+"?"+url.Values{queryError: {errorMsg}}.Encode())
}

// pathID parses the {id} wildcard of the matched route
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

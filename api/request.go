package api

import (
	"encoding/json"
	"net/http"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// decodeJSON decodes r's body into dst, translating a malformed body into
// the Validation error kind so handlers can respondError it directly.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return zfserr.New(zfserr.Validation, "missing request body")
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return zfserr.Wrap(zfserr.Validation, err, "malformed JSON request body")
	}
	return nil
}

// queryBool parses a query-string flag, defaulting to false for any value
// other than "true"/"1".
func queryBool(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "true" || v == "1"
}

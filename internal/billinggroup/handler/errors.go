package handler

import (
	"errors"
	"net/http"

	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/httputil"
	"policydesk/pkg/platform/sentinel"
)

// writeError maps bare infrastructure sentinels onto domain codes before
// writing the error envelope.
func writeError(w http.ResponseWriter, err error) {
	if _, coded := dErrors.Coded(err); !coded {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			err = dErrors.Wrap(err, dErrors.CodeNotFound, "not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			err = dErrors.Wrap(err, dErrors.CodeUnavailable, "dependency unavailable")
		}
	}
	httputil.WriteError(w, err)
}

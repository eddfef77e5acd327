package middleware

import (
	"context"
	"crypto/sha256"
	"net/http"
	"regexp"

	uuid "github.com/satori/go.uuid"
	"github.com/shengdoushi/base58"

	"github.com/brave-intl/momo-go/libs/requestutils"
)

const maxRequestIDLength = 64

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// RequestIDTransfer puts the caller's x-request-id on the context and echoes it on the response.
// Ids that are missing, too long or carry unexpected characters are replaced with a fresh one,
// the id ends up in logs and on every outbound provider call.
func RequestIDTransfer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestutils.RequestIDHeaderKey)
		if len(reqID) > maxRequestIDLength || !requestIDPattern.MatchString(reqID) {
			reqID = newRequestID()
		}
		w.Header().Set(requestutils.RequestIDHeaderKey, reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestutils.RequestID, reqID)))
	})
}

func newRequestID() string {
	sum := sha256.Sum256(uuid.NewV4().Bytes())
	return base58.Encode(sum[:], base58.BitcoinAlphabet)[:16]
}

package middleware

/*
Copyright 2016-current lg authors. All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * The names of authors or contributors may NOT be used to endorse or
promote products derived from this software without specific prior
written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"

	"github.com/brave-intl/momo-go/libs/handlers"
	"github.com/brave-intl/momo-go/libs/requestutils"
)

var (
	ipPortRE = regexp.MustCompile(`[0-9]+(?:\.[0-9]+){3}(:[0-9]+)?`)

	// metric scrapes and load balancer probes are not worth a log line
	unloggedPaths = map[string]bool{
		"/metrics":      true,
		"/health-check": true,
	}
)

// RequestLogger logs the start and completion of every request and turns a panic into a
// 500 response reported to sentry. The request scoped logger installed by hlog is used,
// logger is the fallback when there is none.
func RequestLogger(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unloggedPaths[r.URL.EscapedPath()] {
				next.ServeHTTP(w, r)
				return
			}

			l := requestLogger(r, logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			requestEvent(l.Info(), r).Msg("request started")

			defer func() {
				if rec := recover(); rec != nil {
					l.Error().
						Str("panic", fmt.Sprintf("%+v", rec)).
						Str("stacktrace", string(debug.Stack())).
						Msg("panic recovered")
					reportPanic(r, rec)

					(&handlers.AppError{
						Message: http.StatusText(http.StatusInternalServerError),
						Code:    http.StatusInternalServerError,
					}).ServeHTTP(ww, r)
				}

				status := ww.Status()
				requestEvent(levelFor(l, status), r).
					Int("status", status).
					Int("size", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request complete")
			}()

			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))
		})
	}
}

func requestLogger(r *http.Request, fallback *zerolog.Logger) *zerolog.Logger {
	l := zerolog.Ctx(r.Context())
	if l.GetLevel() == zerolog.Disabled && fallback != nil {
		return fallback
	}
	return l
}

// reportPanic sends rec to sentry, addresses are masked so that panics like
// "read tcp 10.0.0.1:4312->10.0.0.2:443: i/o timeout" group into one issue.
func reportPanic(r *http.Request, rec interface{}) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("reqID", requestutils.GetRequestID(r.Context()))
		event := sentry.NewEvent()
		event.Message = ipPortRE.ReplaceAllString(fmt.Sprint(rec), "x.x.x.x:xxxx")
		sentry.CaptureEvent(event)
	})
}

func levelFor(l *zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return l.Error()
	case status >= 400:
		return l.Warn()
	default:
		return l.Info()
	}
}

func requestEvent(e *zerolog.Event, r *http.Request) *zerolog.Event {
	e = e.Str("host", r.Host).
		Str("http_proto", r.Proto).
		Str("http_method", r.Method).
		Str("uri", r.URL.EscapedPath())

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			e = e.Str("route", pattern)
		}
	}
	if reqID := requestutils.GetRequestID(r.Context()); reqID != "" {
		e = e.Str("x_request_id", reqID)
	}
	return e
}

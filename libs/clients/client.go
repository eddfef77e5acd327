package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brave-intl/momo-go/libs/closers"
	appctx "github.com/brave-intl/momo-go/libs/context"
	errorutils "github.com/brave-intl/momo-go/libs/errors"
	"github.com/brave-intl/momo-go/libs/logging"
	"github.com/brave-intl/momo-go/libs/middleware"
	"github.com/brave-intl/momo-go/libs/requestutils"
)

// DefaultTimeout bounds a single request when the client is not configured otherwise.
const DefaultTimeout = 10 * time.Second

// regular expression mapped to the replacement
var redactHeaders = map[*regexp.Regexp][]byte{
	regexp.MustCompile(`(?i)authorization: (?i)basic.+\n`):    []byte("Authorization: Basic <token>\n"),
	regexp.MustCompile(`(?i)authorization: (?i)bearer.+\n`):   []byte("Authorization: Bearer <token>\n"),
	regexp.MustCompile(`(?i)ocp-apim-subscription-key: .+\n`): []byte("Ocp-Apim-Subscription-Key: <key>\n"),
	regexp.MustCompile(`(?i)"access_token":\s*"[^"]+"`):       []byte(`"access_token":"<token>"`),
}

// RedactSensitiveHeaders from http request dumps
func RedactSensitiveHeaders(corpus []byte) []byte {
	for k, v := range redactHeaders {
		corpus = k.ReplaceAll(corpus, v)
	}
	return corpus
}

var concurrentClientRequests = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "concurrent_client_requests",
		Help: "Gauge that holds the current number of client requests",
	},
	[]string{
		"host",
		"method",
	},
)

func init() {
	prometheus.MustRegister(concurrentClientRequests)
}

// QueryStringBody - a type to generate the query string from a request "body" for the client
type QueryStringBody interface {
	// GenerateQueryString - function to generate the query string
	GenerateQueryString() (url.Values, error)
}

// SimpleHTTPClient wraps http.Client for making simple token authorized requests
type SimpleHTTPClient struct {
	BaseURL   *url.URL
	AuthToken string
	// Timeout bounds every request made through Do, regardless of the caller's context.
	Timeout time.Duration

	client *http.Client
}

// New returns a new SimpleHTTPClient
func New(serverURL string, authToken string) (*SimpleHTTPClient, error) {
	return NewWithHTTPClient(serverURL, authToken, &http.Client{
		Timeout: DefaultTimeout,
	})
}

// NewWithHTTPClient returns a new SimpleHTTPClient, using the provided http.Client
func NewWithHTTPClient(serverURL string, authToken string, client *http.Client) (*SimpleHTTPClient, error) {
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}

	timeout := client.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &SimpleHTTPClient{
		BaseURL:   baseURL,
		AuthToken: authToken,
		Timeout:   timeout,
		client:    client,
	}, nil
}

// NewInstrumented returns a new SimpleHTTPClient whose transport reports request metrics under name
func NewInstrumented(name, serverURL string, timeout time.Duration) (*SimpleHTTPClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return NewWithHTTPClient(serverURL, "", &http.Client{
		Timeout:   timeout,
		Transport: middleware.InstrumentRoundTripper(http.DefaultTransport, name),
	})
}

// newRequest creates a request, JSON encoding the body passed
func (c *SimpleHTTPClient) newRequest(
	ctx context.Context,
	method,
	path string,
	body interface{},
	qsb QueryStringBody,
) (*http.Request, error) {
	var buf io.ReadWriter
	qs := ""

	if qsb != nil {
		v, err := qsb.GenerateQueryString()
		if err != nil {
			return nil, fmt.Errorf("failed to generate query string: %w", err)
		}
		qs = v.Encode()
	}

	resolvedURL := c.BaseURL.ResolveReference(&url.URL{
		Path:     path,
		RawQuery: qs,
	})

	if body != nil && method != http.MethodGet {
		buf = new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, errorutils.Wrap(err, ErrUnableToEncodeBody)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), buf)
	if err != nil {
		var (
			escErr  url.EscapeError
			hostErr url.InvalidHostError
		)
		switch {
		case errors.As(err, &escErr):
			return nil, errorutils.Wrap(err, ErrUnableToEscapeURL)
		case errors.As(err, &hostErr):
			return nil, errorutils.Wrap(err, ErrInvalidHost)
		default:
			return nil, errorutils.Wrap(err, ErrMalformedRequest)
		}
	}

	req.Header.Set("accept", "application/json")
	if buf != nil {
		req.Header.Set("content-type", "application/json")
	}
	requestutils.SetRequestID(ctx, req)
	if c.AuthToken != "" {
		req.Header.Set("authorization", "Bearer "+c.AuthToken)
	}

	return req, nil
}

// NewRequest wraps the new request with a particular error type
func (c *SimpleHTTPClient) NewRequest(
	ctx context.Context,
	method,
	path string,
	body interface{},
	qsb QueryStringBody,
) (*http.Request, error) {
	req, err := c.newRequest(ctx, method, path, body, qsb)
	if err != nil {
		return nil, NewHTTPError(err, c.BaseURL.ResolveReference(&url.URL{Path: path}).String(), "request", http.StatusBadRequest, body)
	}
	return req, nil
}

// do the specified http request, decoding the JSON result into v
func (c *SimpleHTTPClient) do(ctx context.Context, req *http.Request, v interface{}) (*http.Response, error) {
	labels := prometheus.Labels{"host": req.URL.Host, "method": req.Method}
	concurrentClientRequests.With(labels).Inc()
	defer concurrentClientRequests.With(labels).Dec()

	logger := logging.FromContext(ctx)
	debug, okDebug := ctx.Value(appctx.DebugLoggingCTXKey).(bool)
	debug = okDebug && debug

	if debug {
		requestDump, err := httputil.DumpRequestOut(req, true)
		if err != nil {
			logger.Error().Err(err).Str("type", "http.Request").Msg("failed to dump request body")
		} else {
			logger.Debug().Str("type", "http.Request").Msg(string(RedactSensitiveHeaders(requestDump)))
		}
	}

	// The request is bounded by the client timeout only. Cancelling the caller does not abandon
	// a call that is already on the wire.
	reqCtx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	req = req.WithContext(appctx.Wrap(req.Context(), reqCtx))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer closers.Log(ctx, resp.Body)

	if debug {
		dump, err := httputil.DumpResponse(resp, true)
		if err != nil {
			logger.Error().Err(err).Str("type", "http.Response").Msg("failed to dump response body")
		} else {
			logger.Debug().Str("type", "http.Response").Msg(string(RedactSensitiveHeaders(dump)))
		}
	}

	bodyBytes, err := requestutils.Read(ctx, resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	status := resp.StatusCode
	if status >= 200 && status <= 299 {
		if v != nil && len(bodyBytes) > 0 {
			if err := json.Unmarshal(bodyBytes, v); err != nil {
				return resp, errorutils.Wrap(err, ErrUnableToDecode)
			}
		}

		return resp, nil
	}

	logger.Warn().
		Int("response_status", status).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Msg("failed http client call")

	return resp, errorutils.Wrap(fmt.Errorf("unexpected status %d", status), ErrProtocolError)
}

// RespErrData - error data for http response
type RespErrData struct {
	ResponseHeaders interface{}
	Body            interface{}
}

// Do the specified http request, decoding the JSON result into v.
//
// A nil response with an error means nothing was received from the server. Otherwise the error is
// an errors.ErrorBundle carrying an HTTPState, and the response body can be read again by the caller.
func (c *SimpleHTTPClient) Do(ctx context.Context, req *http.Request, v interface{}) (*http.Response, error) {
	resp, err := c.do(ctx, req, v)
	if err != nil {
		if resp != nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body = io.NopCloser(bytes.NewBuffer(b))

			errorData := RespErrData{
				ResponseHeaders: resp.Header,
				Body:            string(b),
			}

			return resp, NewHTTPError(err, req.URL.String(), "response", resp.StatusCode, errorData)
		}
		return nil, fmt.Errorf("failed c.do, no response body: %w", err)
	}
	return resp, nil
}

// internal/predict/client.go
//
// Medcost – prediction service client.
//
// Context
//   The cost model lives behind a remote HTTP endpoint.  This file owns the
//   single outbound call the form makes: POST the six canonical fields as
//   JSON, then read back a numeric “prediction” or an error message.  The
//   Submission Controller treats every failure as terminal to its cycle, so
//   Predict never retries and never imposes its own timeout.
//
// Workflow
//   •  Request is the canonical body.  It is checked with validator tags
//      before encoding so a coercion bug can never reach the wire.
//   •  Predict encodes, posts, and hands the raw body to decodeResponse.
//   •  Non-2xx statuses become *TransportError carrying any server message.
//   •  2xx bodies without a numeric “prediction” become
//      *MalformedResponseError.
//   •  Message(err) returns the user-facing text for any of the above.
//
// Style
//   Two spaces after periods, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/medcost/internal/metrics"
)

// DefaultEndpoint is used when configuration leaves predict.endpoint unset.
const DefaultEndpoint = "http://localhost:5000/predict"

// maxBody caps how much of a response we are willing to buffer.
const maxBody = 1 << 20

// Request is the JSON body sent to the prediction service.
type Request struct {
	Age      int     `json:"age"      validate:"min=18,max=100"`
	Sex      string  `json:"sex"      validate:"oneof=male female"`
	BMI      float64 `json:"bmi"      validate:"min=10,max=50"`
	Children int     `json:"children" validate:"min=0,max=10"`
	Smoker   string  `json:"smoker"   validate:"oneof=yes no"`
	Region   string  `json:"region"   validate:"oneof=northeast northwest southeast southwest"`
}

// Doer is the subset of *http.Client used by Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client posts Requests to one endpoint.  Safe for concurrent use.
type Client struct {
	endpoint string
	http     Doer
	log      *zap.SugaredLogger
	validate *validator.Validate
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(d Doer) Option { return func(c *Client) { c.http = d } }

// WithLogger attaches a logger.  The global zap logger is used otherwise.
func WithLogger(l *zap.SugaredLogger) Option { return func(c *Client) { c.log = l } }

// New returns a Client for endpoint.  An empty endpoint selects
// DefaultEndpoint.  The default transport has no timeout.
func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		validate: validator.New(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.S()
	}
	return c
}

// Endpoint reports the URL the client posts to.
func (c *Client) Endpoint() string { return c.endpoint }

// Predict issues exactly one POST and returns the numeric estimate.
func (c *Client) Predict(ctx context.Context, req Request) (float64, error) {
	if err := c.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("predict: invalid request: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("predict: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	metrics.PredictionRequestSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Warnw("prediction request failed", "endpoint", c.endpoint, "err", err)
		return 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, &TransportError{Status: resp.StatusCode, Err: err}
	}

	value, err := decodeResponse(resp.StatusCode, raw)
	if err != nil {
		c.log.Warnw("prediction rejected", "endpoint", c.endpoint, "status", resp.StatusCode, "err", err)
		return 0, err
	}

	c.log.Debugw("prediction received", "endpoint", c.endpoint, "value", value)
	return value, nil
}

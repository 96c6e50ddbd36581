// internal/predict/client_test.go
//
// Unit-tests for the prediction client against httptest servers.
//
// Run: go test ./internal/predict -v

package predict

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validReq = Request{Age: 30, Sex: "male", BMI: 27.5, Children: 2, Smoker: "no", Region: "northeast"}

func serve(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestPredict_Success(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, `{"status":"success","prediction":8821.5}`)

	got, err := New(srv.URL).Predict(context.Background(), validReq)
	require.NoError(t, err)
	assert.Equal(t, 8821.5, got)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestPredict_WireFormat(t *testing.T) {
	var (
		method, ctype string
		body          map[string]json.RawMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		ctype = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"prediction":1}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Predict(context.Background(), validReq)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", ctype)
	assert.Equal(t, `30`, string(body["age"]))
	assert.Equal(t, `27.5`, string(body["bmi"]))
	assert.Equal(t, `2`, string(body["children"]))
	assert.Equal(t, `"male"`, string(body["sex"]))
	assert.Equal(t, `"no"`, string(body["smoker"]))
	assert.Equal(t, `"northeast"`, string(body["region"]))
	assert.Len(t, body, 6)
}

func TestPredict_FailureWithMessage(t *testing.T) {
	srv, _ := serve(t, http.StatusBadRequest, `{"status":"error","message":"model unavailable"}`)

	_, err := New(srv.URL).Predict(context.Background(), validReq)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.Status)
	assert.Equal(t, "model unavailable", Message(err))
}

func TestPredict_FailureWithoutBody(t *testing.T) {
	srv, _ := serve(t, http.StatusInternalServerError, ``)

	_, err := New(srv.URL).Predict(context.Background(), validReq)
	require.Error(t, err)
	assert.Equal(t, FallbackMessage, Message(err))
}

func TestPredict_MessageMarkupStripped(t *testing.T) {
	srv, _ := serve(t, http.StatusBadGateway, `{"message":"<b>model</b> down &amp; out"}`)

	_, err := New(srv.URL).Predict(context.Background(), validReq)
	assert.Equal(t, "model down & out", Message(err))
}

func TestPredict_Malformed(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing field", `{"status":"success"}`, FallbackMessage},
		{"string value", `{"prediction":"lots"}`, FallbackMessage},
		{"not json", `<html>oops</html>`, FallbackMessage},
		{"error shape on 200", `{"status":"error","message":"bad input"}`, "bad input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := serve(t, http.StatusOK, tc.body)

			_, err := New(srv.URL).Predict(context.Background(), validReq)
			var me *MalformedResponseError
			require.True(t, errors.As(err, &me), "got %v", err)
			assert.Equal(t, tc.want, Message(err))
		})
	}
}

func TestPredict_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Predict(context.Background(), validReq)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.Status)
	assert.Equal(t, FallbackMessage, Message(err))
}

func TestPredict_InvalidRequestNeverSent(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, `{"prediction":1}`)

	bad := validReq
	bad.Region = "atlantis"
	_, err := New(srv.URL).Predict(context.Background(), bad)
	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(hits))
	assert.Equal(t, FallbackMessage, Message(err))
}

func TestNew_DefaultEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEndpoint, New("").Endpoint())
}

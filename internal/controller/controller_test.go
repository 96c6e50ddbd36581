// internal/controller/controller_test.go
//
// Unit-tests for the Submission Controller.
//
// Context
// -------
// Each test wires a real predict.Client to an httptest server that plays the
// prediction service, so request counting, wire types, and error mapping are
// exercised end to end.  A gate channel lets the busy tests hold a request
// open while a second submit arrives.
//
// Run: go test ./internal/controller -v

package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/medcost/internal/form"
	"github.com/yanizio/medcost/internal/predict"
)

type fakeService struct {
	srv    *httptest.Server
	hits   int32
	mu     sync.Mutex
	bodies []map[string]json.RawMessage

	started chan struct{} // receives once per request, if non-nil
	release chan struct{} // blocks the handler until closed, if non-nil
}

func newService(t *testing.T, status int, body string) *fakeService {
	t.Helper()
	fs := &fakeService{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fs.hits, 1)
		var m map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&m)
		fs.mu.Lock()
		fs.bodies = append(fs.bodies, m)
		fs.mu.Unlock()

		if fs.started != nil {
			fs.started <- struct{}{}
		}
		if fs.release != nil {
			<-fs.release
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeService) requests() []map[string]json.RawMessage {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]map[string]json.RawMessage(nil), fs.bodies...)
}

func newController(t *testing.T, fs *fakeService) *Controller {
	t.Helper()
	def, err := form.Default()
	require.NoError(t, err)
	return New(def, predict.New(fs.srv.URL))
}

func validSnapshot() form.Snapshot {
	return form.Snapshot{
		"age": "30", "sex": "male", "bmi": "27.5",
		"children": "2", "smoker": "no", "region": "northeast",
	}
}

func TestNew_InitialState(t *testing.T) {
	c := newController(t, newService(t, http.StatusOK, `{}`))

	st := c.State()
	assert.False(t, st.Busy)
	assert.Equal(t, Absent, st.Outcome.Kind)
	assert.Empty(t, st.Errors)
	assert.Equal(t, "male", st.Values["sex"])
	assert.Equal(t, "no", st.Values["smoker"])
	assert.Equal(t, "northeast", st.Values["region"])
}

func TestSubmit_Success(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"status":"success","prediction":8821.5}`)
	c := newController(t, fs)

	out, err := c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)
	assert.Equal(t, EstimateOf(8821.5), out)
	assert.Equal(t, "$8,821.5", out.Display())

	st := c.State()
	assert.False(t, st.Busy)
	assert.Equal(t, EstimateOf(8821.5), st.Outcome)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fs.hits))
}

func TestSubmit_CoercesNumericStrings(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":1}`)
	c := newController(t, fs)

	snap := validSnapshot()
	snap["age"] = " 45 "
	snap["bmi"] = "31"
	snap["children"] = "0"
	_, err := c.Submit(context.Background(), snap)
	require.NoError(t, err)

	reqs := fs.requests()
	require.Len(t, reqs, 1)
	body := reqs[0]
	assert.Equal(t, `45`, string(body["age"]))
	assert.Equal(t, `31`, string(body["bmi"]))
	assert.Equal(t, `0`, string(body["children"]))

	var age int
	require.NoError(t, json.Unmarshal(body["age"], &age))
	var bmi float64
	require.NoError(t, json.Unmarshal(body["bmi"], &bmi))
	assert.Equal(t, 31.0, bmi)
}

func TestSubmit_FailureWithMessage(t *testing.T) {
	fs := newService(t, http.StatusServiceUnavailable, `{"message":"model unavailable"}`)
	c := newController(t, fs)

	out, err := c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)
	assert.Equal(t, FailureOf("model unavailable"), out)
	assert.False(t, c.State().Busy)
}

func TestSubmit_FailureWithoutBody(t *testing.T) {
	fs := newService(t, http.StatusInternalServerError, ``)
	c := newController(t, fs)

	out, err := c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)
	assert.Equal(t, FailureOf("Error making prediction"), out)
}

func TestSubmit_MalformedSuccess(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"status":"success"}`)
	c := newController(t, fs)

	out, err := c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)
	assert.Equal(t, FailureOf("Error making prediction"), out)
}

func TestSubmit_InvalidKeepsOutcome(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":100}`)
	c := newController(t, fs)

	_, err := c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)

	bad := validSnapshot()
	bad["age"] = "17"
	_, err = c.Submit(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalid)
	assert.True(t, form.IsValidationError(err))

	st := c.State()
	assert.False(t, st.Busy)
	assert.Equal(t, form.Diagnostics{"age": "Age must be at least 18"}, st.Errors)
	assert.Equal(t, EstimateOf(100), st.Outcome, "prior outcome must survive a rejected submit")
	assert.EqualValues(t, 1, atomic.LoadInt32(&fs.hits))
}

func TestSubmit_ValidClearsDiagnostics(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":5}`)
	c := newController(t, fs)

	bad := validSnapshot()
	bad["bmi"] = "nope"
	_, err := c.Submit(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, "BMI must be a number", c.State().Errors["bmi"])

	_, err = c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)
	assert.Empty(t, c.State().Errors)
}

func TestBegin_SingleFlight(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":42}`)
	fs.started = make(chan struct{}, 1)
	fs.release = make(chan struct{})
	c := newController(t, fs)

	first, err := c.Begin(context.Background(), validSnapshot())
	require.NoError(t, err)

	select {
	case <-fs.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the service")
	}

	st := c.State()
	assert.True(t, st.Busy)
	assert.Equal(t, Pending, st.Outcome.Kind)

	second, err := c.Begin(context.Background(), validSnapshot())
	assert.Nil(t, second)
	require.ErrorIs(t, err, ErrBusy)

	close(fs.release)
	<-first.Done()

	assert.Equal(t, EstimateOf(42), first.Outcome())
	assert.False(t, c.State().Busy)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fs.hits), "exactly one request across two submits")
}

func TestBegin_CallerCancelDoesNotAbort(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":7}`)
	fs.started = make(chan struct{}, 1)
	fs.release = make(chan struct{})
	c := newController(t, fs)

	ctx, cancel := context.WithCancel(context.Background())
	tk, err := c.Begin(ctx, validSnapshot())
	require.NoError(t, err)
	<-fs.started
	cancel()
	close(fs.release)
	<-tk.Done()

	assert.Equal(t, EstimateOf(7), c.State().Outcome)
}

func TestBegin_ResultAppliesAfterEdits(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":9}`)
	fs.started = make(chan struct{}, 1)
	fs.release = make(chan struct{})
	c := newController(t, fs)

	tk, err := c.Begin(context.Background(), validSnapshot())
	require.NoError(t, err)
	<-fs.started

	require.NoError(t, c.SetField("age", "99"))
	close(fs.release)
	<-tk.Done()

	st := c.State()
	assert.Equal(t, "99", st.Values["age"])
	assert.Equal(t, EstimateOf(9), st.Outcome)
}

func TestSetField_Unknown(t *testing.T) {
	c := newController(t, newService(t, http.StatusOK, `{}`))
	err := c.SetField("income", "1")
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestSubscribe_Transitions(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":3}`)
	c := newController(t, fs)

	var (
		mu    sync.Mutex
		kinds []Kind
		busy  []bool
	)
	cancel := c.Subscribe(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, st.Outcome.Kind)
		busy = append(busy, st.Busy)
	})

	_, err := c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []Kind{Pending, Estimate}, kinds)
	assert.Equal(t, []bool{true, false}, busy)
	mu.Unlock()

	cancel()
	cancel()
	_, err = c.Submit(context.Background(), validSnapshot())
	require.NoError(t, err)

	mu.Lock()
	assert.Len(t, kinds, 2, "no callbacks after cancel")
	mu.Unlock()
}

func TestNotify_SkipsOvertakenState(t *testing.T) {
	c := newController(t, newService(t, http.StatusOK, `{}`))

	var got []uint64
	c.Subscribe(func(st State) { got = append(got, st.Version) })

	c.notify(State{Version: 5, Busy: false})
	c.notify(State{Version: 4, Busy: true})
	c.notify(State{Version: 5})
	c.notify(State{Version: 6})

	assert.Equal(t, []uint64{5, 6}, got)
}

func TestSubscribe_LastDeliveryMatchesStateUnderEdits(t *testing.T) {
	fs := newService(t, http.StatusOK, `{"prediction":11}`)
	fs.started = make(chan struct{}, 1)
	fs.release = make(chan struct{})
	c := newController(t, fs)

	var (
		mu       sync.Mutex
		last     State
		versions []uint64
	)
	c.Subscribe(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		last = st
		versions = append(versions, st.Version)
	})

	tk, err := c.Begin(context.Background(), validSnapshot())
	require.NoError(t, err)
	<-fs.started

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = c.SetField("age", strconv.Itoa(18+g))
				if g == 0 && i == 25 {
					close(fs.release)
				}
			}
		}(g)
	}
	wg.Wait()
	<-tk.Done()

	final := c.State()
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, final.Busy)
	assert.Equal(t, EstimateOf(11), final.Outcome)
	assert.Equal(t, final.Version, last.Version)
	assert.Equal(t, final.Busy, last.Busy)
	assert.Equal(t, final.Outcome, last.Outcome)
	assert.Equal(t, final.Values, last.Values)
	assert.IsIncreasing(t, versions)
}

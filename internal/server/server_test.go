package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/billie-coop/typeahead/internal/api"
	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func postJSON(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, api.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/drug-predict/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)

	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestPredict_JSON(t *testing.T) {
	s := newTestServer(t, Options{})

	w, resp := postJSON(t, s.Handler(), `{"drug_section":"IN01","drug_text":"aspirin","prediction_count":3}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, resp.Predictions, 3)
	assert.Equal(t, "N02BA01", resp.Predictions[0].Code)
	assert.Equal(t, 1, resp.Predictions[0].Rank)
	assert.Equal(t, 3, resp.Predictions[2].Rank)
	assert.GreaterOrEqual(t, resp.Predictions[0].P, resp.Predictions[1].P)
	assert.Equal(t, "N02BA01", resp.AuxiliaryID)
	require.NotNil(t, resp.Info)
	assert.Nil(t, resp.Info.Warning)
	assert.True(t, strings.HasSuffix(resp.Info.TimeElapsed, " s"))
	assert.Equal(t, "aspirin", resp.SubmittedData["drug_text"])
	assert.EqualValues(t, 3, resp.SubmittedData["prediction_count"])
}

func TestPredict_DefaultCount(t *testing.T) {
	s := newTestServer(t, Options{})

	_, resp := postJSON(t, s.Handler(), `{"drug_section":"LS01","drug_text":"ibu"}`)
	assert.Len(t, resp.Predictions, defaultPredictionCount)
	assert.Equal(t, "M01AE01", resp.Predictions[0].Code)
}

func TestPredict_Form(t *testing.T) {
	s := newTestServer(t, Options{})

	form := url.Values{"drug_section": {"TX21"}, "drug_text": {"warfarin"}, "prediction_count": {"2"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/drug-predict/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, "B01AA03", resp.Predictions[0].Code)
}

func TestPredict_LowConfidenceWarns(t *testing.T) {
	s := newTestServer(t, Options{})

	_, resp := postJSON(t, s.Handler(), `{"drug_section":"IN01","drug_text":"qqqq"}`)
	require.NotNil(t, resp.Info.Warning)
	assert.Equal(t, warningUncertain, *resp.Info.Warning)
	assert.Empty(t, resp.AuxiliaryID)
}

func TestPredict_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing text", `{"drug_section":"IN01"}`, errMissingFields},
		{"missing section", `{"drug_text":"aspirin"}`, errMissingFields},
		{"unknown section", `{"drug_section":"ZZ99","drug_text":"aspirin"}`, "Drug section must be one of the following: IN01"},
		{"bad count", `{"drug_section":"IN01","drug_text":"a","prediction_count":0}`, "prediction_count must be a positive integer"},
		{"bad json", `{"drug_section":`, "not valid JSON"},
	}

	s := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := postJSON(t, s.Handler(), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, resp.Error, tt.want)
			assert.Empty(t, resp.Predictions)
		})
	}
}

func TestPredict_RateLimited(t *testing.T) {
	s := newTestServer(t, Options{RatePerSecond: 0.001, Burst: 1})

	w, _ := postJSON(t, s.Handler(), `{"drug_section":"IN01","drug_text":"a"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := postJSON(t, s.Handler(), `{"drug_section":"IN01","drug_text":"a"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", resp.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})
	postJSON(t, s.Handler(), `{"drug_section":"IN01","drug_text":"aspirin"}`)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "typeahead_service_requests_total")
}

func TestNew_RejectsInvertedLatency(t *testing.T) {
	_, err := New(Options{MinLatency: time.Second, MaxLatency: time.Millisecond})
	assert.Error(t, err)
}

func TestDelay_StopsWhenClientLeaves(t *testing.T) {
	s := newTestServer(t, Options{MinLatency: time.Hour, MaxLatency: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, s.delay(ctx))
}

// The client and the service agree on the wire format.
func TestClientAgainstServer(t *testing.T) {
	s := newTestServer(t, Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	client := api.NewClient(srv.URL+"/drug-predict/",
		api.WithFieldKeys(map[string]string{"section": "drug_section", "text": "drug_text"}))

	res, err := client.Predict(context.Background(), predict.Query{
		Sequence: 1,
		ID:       "q-1",
		Fields:   predict.Fields{"section": "IN01", "text": "para"},
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, res.Predictions, 5)
	assert.Equal(t, "N02BE01 - Paracetamol", res.Predictions[0].String())

	_, err = client.Predict(context.Background(), predict.Query{
		Fields: predict.Fields{"section": "nope", "text": "para"},
	})
	var svcErr *api.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.Status)

	require.NoError(t, client.HealthCheck(context.Background()))
}

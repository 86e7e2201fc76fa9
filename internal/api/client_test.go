package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func query(fields predict.Fields) predict.Query {
	return predict.Query{Sequence: 1, ID: "q-1", Fields: fields, Limit: 10}
}

func TestClient_SendsMappedFields(t *testing.T) {
	var (
		got    map[string]any
		header string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		header = r.Header.Get(RequestIDHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"predictions":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithFieldKeys(map[string]string{"section": "drug_section", "text": "drug_text"}))
	_, err := c.Predict(context.Background(), query(predict.Fields{"section": "IN01", "text": "asp", "extra": "x"}))
	require.NoError(t, err)

	assert.Equal(t, "q-1", header)
	assert.Equal(t, "IN01", got["drug_section"])
	assert.Equal(t, "asp", got["drug_text"])
	assert.Equal(t, "x", got["extra"])
	assert.EqualValues(t, 10, got[PredictionCountKey])
}

func TestClient_DecodesStructuredPredictions(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"info": {"warning": "Max prediction less than 0.4, please check your input", "time_elapsed": "0.01s"},
		"predictions": [{"sc_code": "N02BA01", "code_definition": "Acetylsalicylic acid", "p": 0.3, "p_rank": 1}],
		"auxiliary_id": "N02BA01"
	}`)

	res, err := NewClient(srv.URL).Predict(context.Background(), query(predict.Fields{"text": "asp"}))
	require.NoError(t, err)

	require.Len(t, res.Predictions, 1)
	assert.Equal(t, "N02BA01 - Acetylsalicylic acid", res.Predictions[0].String())
	assert.InDelta(t, 0.3, res.Predictions[0].Score, 1e-9)
	assert.Equal(t, "N02BA01", res.AuxiliaryID)
	assert.Contains(t, res.Warning, "Max prediction")
}

func TestClient_DecodesPlainStrings(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"predictions": ["aspirin", "aspartame", "asparagus"]}`)

	res, err := NewClient(srv.URL).Predict(context.Background(), query(predict.Fields{"text": "asp"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"aspirin", "aspartame", "asparagus"}, predict.Labels(res.Predictions))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error body with 400", http.StatusBadRequest, `{"error":"Drug text is required"}`, "Drug text is required"},
		{"error body with 200", http.StatusOK, `{"error":"Drug section must be one of IN01"}`, "Drug section must be one of IN01"},
		{"plain text 500", http.StatusInternalServerError, "boom\n", "boom"},
		{"empty 503", http.StatusServiceUnavailable, "", "Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			_, err := NewClient(srv.URL).Predict(context.Background(), query(predict.Fields{"text": "a"}))

			var svcErr *ServiceError
			require.True(t, errors.As(err, &svcErr), "got %v", err)
			assert.Equal(t, tt.status, svcErr.Status)
			assert.Equal(t, tt.message, svcErr.Message)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"predictions": [`)

	_, err := NewClient(srv.URL).Predict(context.Background(), query(predict.Fields{"text": "a"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode prediction response")
}

func TestClient_Unreachable(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Predict(context.Background(), query(predict.Fields{"text": "a"}))
	require.Error(t, err)
}

func TestClient_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).Predict(ctx, query(predict.Fields{"text": "a"}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL+"/drug-predict/").HealthCheck(context.Background()))

	down := serve(t, http.StatusInternalServerError, "")
	assert.Error(t, NewClient(down.URL+"/drug-predict/").HealthCheck(context.Background()))
}

// fixture is a captured exchange written by cmd/capture-responses.
type fixture struct {
	Input  map[string]string `json:"input"`
	Status int               `json:"status"`
	Body   json.RawMessage   `json:"body"`
}

func TestClient_CapturedFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			var fx fixture
			require.NoError(t, json.Unmarshal(data, &fx))

			srv := serve(t, fx.Status, string(fx.Body))
			fields := predict.Fields{}
			for k, v := range fx.Input {
				fields[k] = v
			}
			res, err := NewClient(srv.URL).Predict(context.Background(), query(fields))

			if fx.Status != http.StatusOK {
				var svcErr *ServiceError
				require.ErrorAs(t, err, &svcErr)
				assert.NotEmpty(t, svcErr.Message)
				return
			}
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Predictions), 10)
			for _, p := range res.Predictions {
				assert.NotEmpty(t, p.String())
			}
		})
	}
}

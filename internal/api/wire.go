// Package api is the HTTP+JSON boundary to the prediction service: the wire
// types shared with the stand-in server and a client implementing
// predict.Transport.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/billie-coop/typeahead/internal/predict"
)

const (
	// PredictionCountKey is the request key for the number of predictions wanted.
	PredictionCountKey = "prediction_count"
	// RequestIDHeader carries the query's correlation ID.
	RequestIDHeader = "X-Request-ID"
)

// WirePrediction is one entry of the service's predictions array. The
// service may send a plain string or a structured object.
type WirePrediction struct {
	Label      string  `json:"label,omitempty"`
	Code       string  `json:"sc_code,omitempty"`
	CodeID     int     `json:"code_id,omitempty"`
	Definition string  `json:"code_definition,omitempty"`
	P          float64 `json:"p,omitempty"`
	Rank       int     `json:"p_rank,omitempty"`
}

func (w *WirePrediction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*w = WirePrediction{Label: s}
		return nil
	}

	type plain WirePrediction
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("prediction must be a string or an object: %w", err)
	}
	*w = WirePrediction(p)
	return nil
}

// Prediction converts the wire entry to the client's type.
func (w WirePrediction) Prediction() predict.Prediction {
	return predict.Prediction{
		Label:  w.Label,
		Code:   w.Code,
		Detail: w.Definition,
		Score:  w.P,
	}
}

// Info carries diagnostics about how the service produced the predictions.
type Info struct {
	Warning     *string `json:"warning"`
	TimeElapsed string  `json:"time_elapsed"`
}

// Response is the service's reply. A non-empty Error means the request was
// rejected, whatever the HTTP status.
type Response struct {
	Description   any              `json:"description,omitempty"`
	SubmittedData map[string]any   `json:"submitted_data,omitempty"`
	Info          *Info            `json:"info,omitempty"`
	Predictions   []WirePrediction `json:"predictions,omitempty"`
	AuxiliaryID   string           `json:"auxiliary_id,omitempty"`
	Error         string           `json:"error,omitempty"`
	RequestType   string           `json:"request_type,omitempty"`
}

// Result converts a successful response, keeping the service's order.
func (r Response) Result() predict.Result {
	res := predict.Result{
		Predictions: make([]predict.Prediction, len(r.Predictions)),
		AuxiliaryID: r.AuxiliaryID,
	}
	for i, p := range r.Predictions {
		res.Predictions[i] = p.Prediction()
	}
	if r.Info != nil && r.Info.Warning != nil {
		res.Warning = *r.Info.Warning
	}
	return res
}

// ServiceError is a request the service answered with an error.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status >= 300 {
		return fmt.Sprintf("prediction service returned status %d: %s", e.Status, e.Message)
	}
	return "prediction service error: " + e.Message
}

package status

import (
	"testing"
	"time"

	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestStatus_Phases(t *testing.T) {
	c := New()
	c.SetSize(80)
	assert.Contains(t, ansi.Strip(c.View()), predict.StatusAwaiting)

	cmd := c.SetState(predict.DisplayState{Phase: predict.PhaseLoading, StatusText: predict.StatusLoading, Sequence: 3})
	assert.NotNil(t, cmd)
	assert.True(t, c.timer.IsRunning())
	view := ansi.Strip(c.View())
	assert.Contains(t, view, predict.StatusLoading)
	assert.Contains(t, view, "#3")

	c.SetLatency(340 * time.Millisecond)
	c.SetState(predict.DisplayState{
		Phase:       predict.PhaseSettled,
		Predictions: []predict.Prediction{{Label: "aspirin"}, {Label: "aspartame"}},
		Sequence:    3,
	})
	assert.False(t, c.timer.IsRunning())
	view = ansi.Strip(c.View())
	assert.Contains(t, view, "2 predictions")
	assert.Contains(t, view, "340ms")

	c.SetState(predict.DisplayState{Phase: predict.PhaseErrored, StatusText: predict.StatusErrorPrefix + "boom"})
	assert.Contains(t, ansi.Strip(c.View()), "Could not reach the API. boom")
}

func TestStatus_SameLoadingPhaseKeepsTimer(t *testing.T) {
	c := New()
	c.SetState(predict.DisplayState{Phase: predict.PhaseLoading})
	assert.Nil(t, c.SetState(predict.DisplayState{Phase: predict.PhaseLoading, Sequence: 2}))
}

func TestStatus_MessageClears(t *testing.T) {
	c := New()
	c.SetSize(80)

	assert.NotNil(t, c.ShowSuccess("Accepted N02BA01"))
	assert.Contains(t, ansi.Strip(c.View()), "Accepted N02BA01")

	// A clear for an older message does nothing.
	c.Update(clearMessageMsg{timestamp: c.message.Timestamp.Add(-time.Second)})
	assert.Equal(t, "Accepted N02BA01", c.Message())

	c.Update(clearMessageMsg{timestamp: c.message.Timestamp})
	assert.Empty(t, c.Message())
}

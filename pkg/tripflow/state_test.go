package tripflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	state := NewState("plan me a trip to Tokyo")

	require.Len(t, state.Messages, 1)
	assert.Equal(t, RoleUser, state.Messages[0].Role)
	assert.Equal(t, "plan me a trip to Tokyo", state.Messages[0].Content)
	assert.Nil(t, state.Err)
	assert.Empty(t, state.ErrorHistory)
}

func TestSetPreference(t *testing.T) {
	var state TravelState

	state.SetPreference("destination", "Tokyo")
	assert.Equal(t, "Tokyo", state.Preference("destination"))

	// Empty values never overwrite
	state.SetPreference("destination", "")
	assert.Equal(t, "Tokyo", state.Preference("destination"))

	assert.Equal(t, "", state.Preference("unset"))
}

func TestMergePreferences(t *testing.T) {
	var state TravelState
	state.SetPreference("origin", "SFO")

	state.MergePreferences(map[string]string{
		"destination": "Tokyo",
		"budget":      "",
	})

	assert.Equal(t, "SFO", state.Preference("origin"))
	assert.Equal(t, "Tokyo", state.Preference("destination"))
	assert.Equal(t, "", state.Preference("budget"))
}

func TestRecordFailure(t *testing.T) {
	var state TravelState

	state.RecordFailure(StepFlight, &SearchError{QueryType: "flight", Status: "rate_limited"})

	require.NotNil(t, state.Err)
	assert.Equal(t, StepFlight, state.Err.Step)
	assert.Equal(t, KindSearch, state.Err.Kind)
	assert.False(t, state.Err.OccurredAt.IsZero())
	require.Len(t, state.ErrorHistory, 1)

	state.RecordFailure(StepHotel, errors.New("boom"))
	assert.Equal(t, StepHotel, state.Err.Step)
	assert.Len(t, state.ErrorHistory, 2, "the trail is append-only")

	state.ClearError()
	assert.Nil(t, state.Err)
	assert.Len(t, state.ErrorHistory, 2, "clearing keeps the trail")
}

func TestApplyApproval_Approve(t *testing.T) {
	var state TravelState
	state.FlightOptions = []FlightOption{testFlight}

	state.ApplyApproval(StepFlight, true, "looks great")

	assert.True(t, state.Approved(StepFlight))
	require.Len(t, state.HumanFeedback, 1)
	assert.Equal(t, "looks great", state.HumanFeedback[0])
	// Feedback is echoed into the conversation as a user turn
	require.Len(t, state.Messages, 1)
	assert.Equal(t, RoleUser, state.Messages[0].Role)
}

func TestApplyApproval_ParallelApprovesBothSides(t *testing.T) {
	var state TravelState
	state.FlightOptions = []FlightOption{testFlight}
	state.HotelOptions = []HotelOption{testHotel}

	state.ApplyApproval(StepParallelSearch, true, "")

	assert.True(t, state.Approved(StepFlight))
	assert.True(t, state.Approved(StepHotel))
	assert.Empty(t, state.HumanFeedback)
	assert.Empty(t, state.Messages)
}

func TestApplyApproval_ParallelSkipsSideWithoutCandidates(t *testing.T) {
	// When a search branch failed, approving the checkpoint signs off only
	// on the candidates the human actually saw. The empty side keeps its
	// checkpoint so the retried search is reviewed.
	var state TravelState
	state.HotelOptions = []HotelOption{testHotel}

	state.ApplyApproval(StepParallelSearch, true, "")

	assert.True(t, state.Approved(StepHotel))
	assert.False(t, state.Approved(StepFlight))
}

func TestApplyApproval_RejectDiscardsCandidates(t *testing.T) {
	var state TravelState
	state.FlightOptions = []FlightOption{testFlight}
	state.HotelOptions = []HotelOption{testHotel}

	state.ApplyApproval(StepParallelSearch, false, "try different dates")

	assert.Nil(t, state.FlightOptions)
	assert.Nil(t, state.HotelOptions)
	assert.False(t, state.Approved(StepFlight))
	require.Len(t, state.HumanFeedback, 1)
}

func TestApplyApproval_Itinerary(t *testing.T) {
	var state TravelState
	state.Itinerary = &Itinerary{Destination: "Tokyo"}

	state.ApplyApproval(StepItinerary, true, "")

	assert.True(t, state.Itinerary.HumanApproved)
	require.NotNil(t, state.Itinerary.ApprovedAt)

	// Rejecting later drops the plan and the sign-off
	state.ApplyApproval(StepItinerary, false, "add more museums")
	assert.Nil(t, state.Itinerary)
	assert.False(t, state.Approved(StepItinerary))
}

func TestClone_IsIndependent(t *testing.T) {
	state := NewState("plan me a trip")
	state.SetPreference("destination", "Tokyo")
	state.FlightOptions = []FlightOption{testFlight}
	state.Itinerary = &Itinerary{Destination: "Tokyo", Days: []DayPlan{{Date: "2026-09-10"}}}
	state.RecordFailure(StepHotel, errors.New("boom"))

	clone := state.Clone()

	clone.AppendMessage(RoleAssistant, "hello")
	clone.SetPreference("destination", "Kyoto")
	clone.FlightOptions[0].Airline = "Delta"
	clone.Itinerary.Destination = "Kyoto"
	clone.Itinerary.Days[0].Date = "2026-10-01"
	clone.Err.Step = StepFlight
	clone.ClearError()

	assert.Len(t, state.Messages, 1)
	assert.Equal(t, "Tokyo", state.Preference("destination"))
	assert.Equal(t, "United", state.FlightOptions[0].Airline)
	assert.Equal(t, "Tokyo", state.Itinerary.Destination)
	assert.Equal(t, "2026-09-10", state.Itinerary.Days[0].Date)
	require.NotNil(t, state.Err)
	assert.Equal(t, StepHotel, state.Err.Step)
}

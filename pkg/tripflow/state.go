package tripflow

import (
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FlightOption is one candidate flight returned by the search provider.
type FlightOption struct {
	Airline       string  `json:"airline"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	Duration      string  `json:"duration,omitempty"`
	Stops         int     `json:"stops,omitempty"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency,omitempty"`
	BookingLink   string  `json:"booking_link,omitempty"`
}

// HotelOption is one candidate hotel returned by the search provider.
type HotelOption struct {
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Currency  string   `json:"currency,omitempty"`
	Rating    float64  `json:"rating,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
	Address   string   `json:"address,omitempty"`
	Website   string   `json:"website,omitempty"`
}

// DestinationInfo is background information about the trip destination,
// used when assembling the itinerary.
type DestinationInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Attractions []string `json:"attractions,omitempty"`
	LocalTips   []string `json:"local_tips,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Currency    string   `json:"currency,omitempty"`
}

// DayPlan is one day of the assembled itinerary.
type DayPlan struct {
	Date       string   `json:"date"`
	Activities []string `json:"activities"`
}

// Itinerary is the final day-by-day travel plan combining the selected
// flight and hotel with destination information.
type Itinerary struct {
	Destination   string          `json:"destination"`
	Flight        FlightOption    `json:"flight"`
	Hotel         HotelOption     `json:"hotel"`
	Days          []DayPlan       `json:"days"`
	Info          DestinationInfo `json:"info,omitempty"`
	HumanApproved bool            `json:"human_approved"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
}

// ErrorRecord is one entry in the error trail.
type ErrorRecord struct {
	Step       string    `json:"step"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TravelState is the conversation state threaded through every step of the
// planning workflow. Steps receive it by value, modify their own fields, and
// return the updated value; no step retains a reference after returning.
//
// Messages, ErrorHistory, and HumanFeedback are append-only: steps add
// entries, none remove them.
type TravelState struct {
	Messages        []Message         `json:"messages"`
	FlightOptions   []FlightOption    `json:"flight_options,omitempty"`
	HotelOptions    []HotelOption     `json:"hotel_options,omitempty"`
	Itinerary       *Itinerary        `json:"itinerary,omitempty"`
	UserPreferences map[string]string `json:"user_preferences,omitempty"`
	Err             *ErrorRecord      `json:"error,omitempty"`
	ErrorHistory    []ErrorRecord     `json:"error_history,omitempty"`
	HumanFeedback   []string          `json:"human_feedback,omitempty"`

	// Approvals records which steps' candidate results a human has signed
	// off on, keyed by step name. It survives serialization so a resumed
	// session does not ask twice.
	Approvals map[string]bool `json:"approvals,omitempty"`
}

// NewState creates an empty conversation state seeded with the user's
// initial planning request.
func NewState(request string) TravelState {
	return TravelState{
		Messages: []Message{{Role: RoleUser, Content: request}},
	}
}

// AppendMessage adds a conversation turn.
func (s *TravelState) AppendMessage(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// SetPreference merges a single preference. Preferences accumulate over the
// conversation and are never cleared.
func (s *TravelState) SetPreference(name, value string) {
	if value == "" {
		return
	}
	if s.UserPreferences == nil {
		s.UserPreferences = make(map[string]string)
	}
	s.UserPreferences[name] = value
}

// MergePreferences merges a batch of preferences, skipping empty values.
func (s *TravelState) MergePreferences(prefs map[string]string) {
	for name, value := range prefs {
		s.SetPreference(name, value)
	}
}

// Preference returns a preference value, or "" if unset.
func (s *TravelState) Preference(name string) string {
	return s.UserPreferences[name]
}

// RecordFailure sets the current error and appends it to the error trail.
func (s *TravelState) RecordFailure(step string, err error) {
	rec := ErrorRecord{
		Step:       step,
		Kind:       KindOf(err),
		Message:    err.Error(),
		OccurredAt: time.Now().UTC(),
	}
	s.Err = &rec
	s.ErrorHistory = append(s.ErrorHistory, rec)
}

// ClearError drops the current error. The trail in ErrorHistory is kept.
func (s *TravelState) ClearError() {
	s.Err = nil
}

// Approved reports whether the named step's results were approved.
func (s *TravelState) Approved(step string) bool {
	return s.Approvals[step]
}

// ApplyApproval records the outcome of a human-approval checkpoint for the
// named step. Feedback, when present, is appended to the feedback trail and
// echoed into the conversation. A rejection discards the step's candidate
// results so the supervisor routes the work again.
func (s *TravelState) ApplyApproval(step string, approved bool, feedback string) {
	if feedback != "" {
		s.HumanFeedback = append(s.HumanFeedback, feedback)
		s.AppendMessage(RoleUser, feedback)
	}

	if approved {
		if s.Approvals == nil {
			s.Approvals = make(map[string]bool)
		}
		s.Approvals[step] = true
		if step == StepParallelSearch {
			// Only a side the human actually saw candidates for is
			// approved; a failed branch keeps its checkpoint for the
			// retried search.
			if len(s.FlightOptions) > 0 {
				s.Approvals[StepFlight] = true
			}
			if len(s.HotelOptions) > 0 {
				s.Approvals[StepHotel] = true
			}
		}
		if step == StepItinerary && s.Itinerary != nil {
			now := time.Now().UTC()
			s.Itinerary.HumanApproved = true
			s.Itinerary.ApprovedAt = &now
		}
		return
	}

	switch step {
	case StepFlight:
		s.FlightOptions = nil
	case StepHotel:
		s.HotelOptions = nil
	case StepParallelSearch:
		s.FlightOptions = nil
		s.HotelOptions = nil
	case StepItinerary:
		s.Itinerary = nil
		delete(s.Approvals, StepItinerary)
	}
}

// Clone creates an independent deep copy of the state for a parallel branch.
func (s TravelState) Clone() TravelState {
	clone := s
	clone.Messages = append([]Message(nil), s.Messages...)
	clone.FlightOptions = append([]FlightOption(nil), s.FlightOptions...)
	clone.HotelOptions = append([]HotelOption(nil), s.HotelOptions...)
	clone.ErrorHistory = append([]ErrorRecord(nil), s.ErrorHistory...)
	clone.HumanFeedback = append([]string(nil), s.HumanFeedback...)
	if s.UserPreferences != nil {
		clone.UserPreferences = make(map[string]string, len(s.UserPreferences))
		for k, v := range s.UserPreferences {
			clone.UserPreferences[k] = v
		}
	}
	if s.Approvals != nil {
		clone.Approvals = make(map[string]bool, len(s.Approvals))
		for k, v := range s.Approvals {
			clone.Approvals[k] = v
		}
	}
	if s.Err != nil {
		errCopy := *s.Err
		clone.Err = &errCopy
	}
	if s.Itinerary != nil {
		itCopy := *s.Itinerary
		itCopy.Days = append([]DayPlan(nil), s.Itinerary.Days...)
		clone.Itinerary = &itCopy
	}
	return clone
}

package agent

import (
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/search"
)

// Preference keys the supervisor extracts and the spoke agents read.
const (
	prefOrigin      = "origin"
	prefDestination = "destination"
	prefDepartDate  = "depart_date"
	prefReturnDate  = "return_date"
	prefTravelers   = "travelers"
	prefBudget      = "budget"
)

const dateLayout = "2006-01-02"

// searchParams converts the accumulated preferences into search parameters.
func searchParams(state tripflow.TravelState) search.Params {
	p := search.Params{
		Origin:      state.Preference(prefOrigin),
		Destination: state.Preference(prefDestination),
		DepartDate:  state.Preference(prefDepartDate),
		ReturnDate:  state.Preference(prefReturnDate),
		Travelers:   1,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(state.Preference(prefTravelers))); err == nil && n > 0 {
		p.Travelers = n
	}
	if b, err := strconv.ParseFloat(strings.TrimSpace(state.Preference(prefBudget)), 64); err == nil && b > 0 {
		p.Budget = b
	}
	return p
}

// missingEssentials reports which of the preferences required for any search
// are still absent, in a stable order suitable for a follow-up question.
func missingEssentials(state tripflow.TravelState) []string {
	var missing []string
	for _, key := range []string{prefOrigin, prefDestination, prefDepartDate, prefReturnDate} {
		if state.Preference(key) == "" {
			missing = append(missing, strings.ReplaceAll(key, "_", " "))
		}
	}
	return missing
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	return t, err == nil
}

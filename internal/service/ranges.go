package service

import (
	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/dates"
	"github.com/sakif/sleepfit-stats/internal/repository"
)

// checkRange validates a query range and returns how many calendar days it
// covers, both ends included.
func checkRange(start, end string) (int, error) {
	if start == "" || end == "" {
		return 0, apperror.ValidationFailed("startDate", "startDate and endDate are required")
	}
	if !dates.Valid(start) {
		return 0, apperror.ValidationFailed("startDate", "startDate must be a date in YYYY-MM-DD format")
	}
	if !dates.Valid(end) {
		return 0, apperror.ValidationFailed("endDate", "endDate must be a date in YYYY-MM-DD format")
	}

	between, _ := dates.DaysBetween(start, end)
	if between < 0 {
		return 0, apperror.ValidationFailed("startDate", "startDate must not be after endDate")
	}
	return between + 1, nil
}

// dateRange validates start and end and converts them for the repository.
func dateRange(start, end string) (repository.DateRange, error) {
	if _, err := checkRange(start, end); err != nil {
		return repository.DateRange{}, err
	}
	return repository.DateRange{Start: start, End: end}, nil
}

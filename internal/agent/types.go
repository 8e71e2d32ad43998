// Package agent implements the simulated data-generation agent that enriches
// a submitter's record some time after the form is posted.
package agent

import (
	"time"
)

// Record is the structured output an agent job produces for a user.
// Field order is the order rendered in the user view.
type Record struct {
	TypeOfConsultation string `json:"typeOfConsultation"`
	Country            string `json:"country"`
	Language           string `json:"language"`
	UrgencyLevel       string `json:"urgencyLevel"`
	Address            string `json:"address"`
}

// MockRecord returns the canned consultation record.
func MockRecord() Record {
	return Record{
		TypeOfConsultation: "Medical",
		Country:            "United States",
		Language:           "English",
		UrgencyLevel:       "High",
		Address:            "123 Main Street, New York, NY",
	}
}

// Status is the result of peeking at a user's job.
type Status struct {
	Ready bool
	Data  *Record
}

// Code returns the wire status: 0 while pending or absent, 1 once ready.
func (s Status) Code() int {
	if s.Ready {
		return 1
	}
	return 0
}

// TriggerResult describes what Trigger did.
type TriggerResult struct {
	Started bool
	JobID   string
	Message string
}

// Config holds simulator configuration.
type Config struct {
	// Delay is how long a job stays pending before its record is ready.
	Delay time.Duration
	// OnReady is called once per finished job, after the result is visible.
	OnReady func(userID int64, jobID string)
}

// DefaultConfig returns default simulator configuration.
func DefaultConfig() Config {
	return Config{
		Delay: 30 * time.Second,
	}
}

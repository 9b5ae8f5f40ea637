package video

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusProcessing        Status = "PROCESSING"
	StatusReadyToPublish    Status = "READY_TO_PUBLISH"
	StatusApprovalRequested Status = "APPROVAL_REQUESTED"
	StatusApprovalApproved  Status = "APPROVAL_APPROVED"
	StatusPosted            Status = "POSTED"
	StatusScheduled         Status = "SCHEDULED"
)

const errInvalidTransitionFmt = "%w: %s -> %s"

var ErrInvalidTransition = errors.New("invalid status transition")

// legacy values still present in older rows
var statusAliases = map[string]Status{
	"PENDING":   StatusReadyToPublish,
	"READY":     StatusReadyToPublish,
	"PUBLISHED": StatusPosted,
	"APPROVED":  StatusApprovalApproved,
}

var transitions = map[Status][]Status{
	StatusProcessing:        {StatusReadyToPublish, StatusApprovalRequested, StatusApprovalApproved},
	StatusReadyToPublish:    {StatusApprovalRequested, StatusApprovalApproved},
	StatusApprovalRequested: {StatusApprovalApproved, StatusReadyToPublish},
	StatusApprovalApproved:  {StatusPosted, StatusScheduled},
	StatusScheduled:         {StatusPosted},
	StatusPosted:            {},
}

func AllStatuses() []Status {
	return []Status{
		StatusProcessing,
		StatusReadyToPublish,
		StatusApprovalRequested,
		StatusApprovalApproved,
		StatusPosted,
		StatusScheduled,
	}
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// NormalizeStatus never fails: unknown or empty input maps to PROCESSING.
func NormalizeStatus(raw string) Status {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return StatusProcessing
	}

	if s := Status(value); s.Valid() {
		return s
	}

	if alias, ok := statusAliases[value]; ok {
		return alias
	}

	return StatusProcessing
}

// CanTransition reports whether from -> to is permitted. Resetting to
// PROCESSING is allowed from every state.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to || to == StatusProcessing {
		return true
	}

	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf(errInvalidTransitionFmt, ErrInvalidTransition, from, to)
	}
	return to, nil
}

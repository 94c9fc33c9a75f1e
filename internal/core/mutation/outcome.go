package mutation

import (
	"github.com/shopneo/console/internal/core/resource"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Outcome is the result of one mutation attempt. Pending is followed by
// exactly one Success or Failure.
type Outcome struct {
	Status Status            `json:"status"`
	Op     Op                `json:"op"`
	Entity string            `json:"entity"`
	Key    resource.Key      `json:"key"`
	Record *resource.Record  `json:"record,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Err    error             `json:"-"`
}

func (o Outcome) Terminal() bool {
	return o.Status == StatusSuccess || o.Status == StatusFailure
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

type Reporter interface {
	Report(Outcome)
}

type nopReporter struct{}

func (nopReporter) Report(Outcome) {}

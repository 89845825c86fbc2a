// Package domain contains the subscription binding between a tenant and a
// plan. Billing state is read-only here; counters are incremented by the
// billed use case, never by the gate.
package domain

import (
	"errors"
	"time"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusTrialing Status = "TRIALING"
	StatusActive   Status = "ACTIVE"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
	StatusEnded    Status = "ENDED"
)

// Usable reports whether the subscription permits billed actions.
func (s Status) Usable() bool {
	return s == StatusTrialing || s == StatusActive
}

// Subscription binds a tenant to a plan plus period usage counters.
type Subscription struct {
	ID                 int64     `gorm:"primaryKey"`
	TenantID           int64     `gorm:"not null;index"`
	PlanID             int64     `gorm:"not null;index"`
	Status             Status    `gorm:"type:text;not null"`
	AIQueriesUsed      int       `gorm:"not null;default:0"`
	CurrentPeriodStart time.Time `gorm:"not null"`
	CurrentPeriodEnd   time.Time `gorm:"not null"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Subscription) TableName() string { return "subscriptions" }

var (
	ErrNoSubscription = errors.New("no_subscription")
)

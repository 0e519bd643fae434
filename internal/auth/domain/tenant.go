package domain

import "time"

// Tenant is a customer partition. Every user and merchant credential belongs
// to exactly one tenant.
type Tenant struct {
	ID            string
	Name          string
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

func (t *Tenant) Active() bool { return t.DeactivatedAt == nil }

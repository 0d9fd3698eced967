// Package deposit decides how much of a deposit a booking requires.
package deposit

import (
	"strings"
	"time"

	"github.com/glowdesk/concierge/internal/business"
)

// Policy computes deposits from per-service and prime-time rules.
type Policy struct {
	rules     map[string]business.ServiceDepositRule
	primeTime business.PrimeTimeRule
}

// NewPolicy builds a policy from business configuration.
func NewPolicy(cfg *business.Config) *Policy {
	return &Policy{rules: cfg.DepositRules, primeTime: cfg.PrimeTime}
}

// Compute returns the required deposit in cents for a (service, date, time)
// slot. The per-service and prime-time amounts are combined by maximum, not
// summed, so a prime-time facial pays one deposit, not two.
func (p *Policy) Compute(service, dateStr, timeStr string) int {
	serviceAmount := 0
	if rule, ok := p.rules[strings.ToLower(strings.TrimSpace(service))]; ok && rule.Required {
		serviceAmount = rule.AmountCents
	}

	primeAmount := 0
	if p.primeTime.Enabled {
		if dt, err := time.Parse("2006-01-02 15:04", dateStr+" "+timeStr); err == nil {
			isWeekend := dt.Weekday() == time.Saturday || dt.Weekday() == time.Sunday
			isEvening := dt.Hour() >= p.primeTime.EveningStartHour

			if (p.primeTime.WeekendRequired && isWeekend) || (p.primeTime.EveningRequired && isEvening) {
				primeAmount = p.primeTime.AmountCents
			}
		}
	}

	if primeAmount > serviceAmount {
		return primeAmount
	}
	return serviceAmount
}

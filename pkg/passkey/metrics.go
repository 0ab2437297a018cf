// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package passkey

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the Prometheus namespace for all passkey metrics.
	MetricsNamespace = "passkey"

	// Label names
	labelCeremony = "ceremony"
	labelPurpose  = "purpose"
	labelStatus   = "status"

	// Ceremony names
	ceremonyRegistration   = "registration"
	ceremonyAuthentication = "authentication"

	// Status values
	statusSuccess = "success"
	statusError   = "error"
)

var (
	// CeremoniesTotal tracks completed ceremony verifications by ceremony
	// and status.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "ceremonies_total",
			Help:      "Total number of ceremony verifications by ceremony and status",
		},
		[]string{labelCeremony, labelStatus},
	)

	// ChallengesIssued tracks challenges minted by purpose.
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "challenges_issued_total",
			Help:      "Total number of ceremony challenges issued by purpose",
		},
		[]string{labelPurpose},
	)

	// ChallengesExpired tracks challenges that expired unconsumed.
	ChallengesExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "challenges_expired_total",
			Help:      "Total number of ceremony challenges that expired before consumption",
		},
	)

	// CounterRegressions tracks refused authentications whose signature
	// counter did not advance. A non-zero rate is a cloned-authenticator
	// signal and warrants investigation.
	CounterRegressions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "counter_regressions_total",
			Help:      "Total number of authentications refused due to signature counter regression",
		},
	)

	// RateLimited tracks ceremony starts refused by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Total number of ceremony starts refused by the rate limiter",
		},
		[]string{labelCeremony},
	)

	// TokensIssued tracks session tokens minted after successful
	// authentication.
	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of session tokens issued",
		},
	)
)

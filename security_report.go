package tokenkeeper

import "time"

// SecurityReport summarizes the effective security posture of an Engine.
// It never includes secrets.
type SecurityReport struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	KeyRotationKeyID      string
	PasswordAlgorithm     PasswordAlgorithm
	Argon2                PasswordConfigReport
	BcryptCost            int
	RefreshReuseRevokes   bool
	RateLimitingActive    bool
	IPThrottleActive      bool
	RefreshThrottleActive bool
	AuditEnabled          bool
	// BlacklistFailsClosed is always true: an unreadable blacklist rejects
	// the access token.
	BlacklistFailsClosed bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	limiter := e.rateLimiter != nil
	report := SecurityReport{
		SigningAlgorithm:      "HS256",
		AccessTTL:             e.config.JWT.AccessTTL,
		RefreshTTL:            e.config.JWT.RefreshTTL,
		KeyRotationKeyID:      e.config.JWT.KeyID,
		PasswordAlgorithm:     e.config.Password.Algorithm,
		RefreshReuseRevokes:   e.config.Session.RevokeOnReuse,
		RateLimitingActive:    limiter,
		IPThrottleActive:      limiter && e.config.RateLimit.EnableIPThrottle,
		RefreshThrottleActive: limiter && e.config.RateLimit.EnableRefreshThrottle,
		AuditEnabled:          e.config.Audit.Enabled,
		BlacklistFailsClosed:  true,
	}
	switch e.config.Password.Algorithm {
	case PasswordBcrypt:
		report.BcryptCost = e.config.Password.BcryptCost
	default:
		report.Argon2 = PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		}
	}
	return report
}

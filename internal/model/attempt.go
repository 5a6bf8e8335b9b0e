package model

import "time"

// AttemptReason is the stable outcome code of a reservation submission.
// The same strings are returned to API callers and stored on ReservationAttempt.
type AttemptReason string

const (
	ReasonMissingRequiredFields  AttemptReason = "MISSING_REQUIRED_FIELDS"
	ReasonInvalidFields          AttemptReason = "INVALID_FIELDS"
	ReasonShopClosed             AttemptReason = "SHOP_CLOSED"
	ReasonBlacklistEmail         AttemptReason = "BLACKLIST_EMAIL"
	ReasonBlacklistPhone         AttemptReason = "BLACKLIST_PHONE"
	ReasonBlacklistIP            AttemptReason = "BLACKLIST_IP"
	ReasonRateLimit24h           AttemptReason = "RATE_LIMIT_24H"
	ReasonDuplicateSubmission    AttemptReason = "DUPLICATE_SUBMISSION"
	ReasonRapidSubmissionsFromIP AttemptReason = "RAPID_SUBMISSIONS_FROM_IP"
	ReasonInternalError          AttemptReason = "INTERNAL_ERROR"
	ReasonOK                     AttemptReason = "OK"
	ReasonOKFlagged              AttemptReason = "OK_FLAGGED"
)

// Accepted reports whether the reason describes a created reservation.
func (r AttemptReason) Accepted() bool {
	return r == ReasonOK || r == ReasonOKFlagged
}

// ReservationAttempt is the append-only audit record of one submission.
type ReservationAttempt struct {
	ID             int64         `gorm:"primaryKey;autoIncrement"`
	CustomerName   string        `gorm:"size:256"`
	CustomerNumber string        `gorm:"size:64"`
	CustomerEmail  string        `gorm:"size:256"`
	IPAddress      *string       `gorm:"size:64;index:idx_attempt_ip_created"`
	Success        bool          `gorm:"not null"`
	Reason         AttemptReason `gorm:"size:64;not null"`
	CreatedAt      time.Time     `gorm:"not null;index:idx_attempt_ip_created"`
}

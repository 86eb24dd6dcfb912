package model

// PendingRegistration is a sign-up waiting for its emailed OTP. Email is the
// primary key.
type PendingRegistration struct {
	Email             string `json:"email"`
	FullName          string `json:"fullName"`
	PasswordHash      string `json:"-"`
	VerificationToken string `json:"-"`
	OTP               string `json:"-"`
	OTPExpiresAt      int64  `json:"otpExpiresAt"`
	Ctime             int64  `json:"ctime"`
}

func (p *PendingRegistration) Expired(now int64) bool {
	return now > p.OTPExpiresAt
}

package marketplace

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/goliatone/go-portal"
)

// OTPExpiry is how long a code stays valid after issuance.
const OTPExpiry = "15m"

// GenerateOTP returns a 6 digit verification code. Codes come from the
// crypto reader so they cannot be predicted from issuance time.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// IsOTPExpired reports whether a code issued at createdAt is past the
// expiry window. A missing timestamp counts as expired.
func IsOTPExpired(createdAt *time.Time) bool {
	if createdAt == nil {
		return true
	}
	expired, err := portal.IsOutsideThresholdPeriod(*createdAt, OTPExpiry)
	if err != nil {
		return true
	}
	return expired
}

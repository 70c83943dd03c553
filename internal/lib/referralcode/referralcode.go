package referralcode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// New derives a referral code from the local part of the email plus a random
// hex suffix, e.g. "ref-alice-9f2c1a".
func New(email string) (string, error) {
	const op = "referralcode.New"

	local := email
	if i := strings.Index(email, "@"); i >= 0 {
		local = email[:i]
	}

	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Sprintf("ref-%s-%s", local, hex.EncodeToString(buf)), nil
}

package dess

import (
	"crypto/sha1" //nolint:gosec // The platform protocol mandates SHA-1
	"encoding/hex"
	"strconv"
	"time"
)

// Param is one query parameter of an API action. Parameter order is part of
// the signed action string, so params travel as an ordered slice rather
// than a map.
type Param struct {
	Key   string
	Value string
}

// IntParam is a convenience constructor for integer-valued parameters.
func IntParam(key string, value int) Param {
	return Param{Key: key, Value: strconv.Itoa(value)}
}

// sha1Hex returns the lowercase hex SHA-1 digest of s.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // Protocol requirement
	return hex.EncodeToString(sum[:])
}

// newSalt returns the request salt: the current unix time in milliseconds
// as a decimal string.
func newSalt(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// buildActionString renders the signed action string:
// "&action=<name>" followed by "&k=v" for each parameter in order.
// Values are not URL-escaped; the platform signs and parses them verbatim.
func buildActionString(action string, params []Param) string {
	s := "&action=" + action
	for _, p := range params {
		s += "&" + p.Key + "=" + p.Value
	}
	return s
}

// signPreAuth computes the signature used before login:
// SHA-1(salt + SHA-1(password) + actionString).
func signPreAuth(salt, password, actionString string) string {
	return sha1Hex(salt + sha1Hex(password) + actionString)
}

// signWithSession computes the signature used on authenticated calls:
// SHA-1(salt + secret + token + actionString).
func signWithSession(salt, secret, token, actionString string) string {
	return sha1Hex(salt + secret + token + actionString)
}

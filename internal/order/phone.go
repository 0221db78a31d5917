package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPhoneFormat is matched by every PhoneFormatError.
var ErrInvalidPhoneFormat = errors.New("invalid phone number format")

const (
	countryCode   = "91"
	nationalDigit = 10
)

// PhoneFormatError keeps the raw value the caller sent so it can be echoed back.
type PhoneFormatError struct {
	Raw     string
	Cleaned string
}

func (e *PhoneFormatError) Error() string {
	return fmt.Sprintf("invalid phone format: raw=%q cleaned=%q", e.Raw, e.Cleaned)
}

func (e *PhoneFormatError) Is(target error) bool {
	return target == ErrInvalidPhoneFormat
}

// FormatPhone turns a raw Zippee phone value into an Indian E.164 number (+91 and 10 digits).
// One leading 0 and a leading 91 country code on a 12 digit value are dropped.
func FormatPhone(raw any) (string, error) {
	s := Stringify(raw)
	digits := digitsOnly(s)

	digits = strings.TrimPrefix(digits, "0")
	if len(digits) == len(countryCode)+nationalDigit && strings.HasPrefix(digits, countryCode) {
		digits = digits[len(countryCode):]
	}

	if len(digits) != nationalDigit {
		return "", &PhoneFormatError{Raw: s, Cleaned: digits}
	}
	return "+" + countryCode + digits, nil
}

// Stringify renders a decoded JSON scalar the way it appeared on the wire.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package aisensy

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProviderError is a non-2xx answer from AiSensy.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("aisensy API error (status %d): %s", e.StatusCode, string(e.Body))
}

// Details is the provider's own account of a failed send: its JSON body when it
// sent one, its raw text otherwise, and err's message for transport failures.
func Details(err error) any {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return err.Error()
	}
	if len(pe.Body) == 0 {
		return pe.Error()
	}
	var parsed any
	if json.Unmarshal(pe.Body, &parsed) == nil {
		return parsed
	}
	return string(pe.Body)
}

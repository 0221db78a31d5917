package order

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

var (
	ErrMissingPhoneNumber = errors.New("missing phoneNumber")
	ErrMissingOrderNumber = errors.New("missing orderNo")
)

// Event is a Zippee order-status webhook. Any field may be absent on the wire.
type Event struct {
	PhoneNumber      any
	CustomerName     string
	OrderNo          string
	OrderStatus      string
	NotificationType string
}

// EventFromPayload reads the Zippee keys out of a decoded JSON body. null, "",
// false and numeric zero read as absent.
func EventFromPayload(payload map[string]any) Event {
	e := Event{
		CustomerName:     field(payload, "customerName"),
		OrderNo:          field(payload, "orderNo"),
		OrderStatus:      field(payload, "orderStatus"),
		NotificationType: field(payload, "notificationType"),
	}
	if v := payload["phoneNumber"]; present(v) {
		e.PhoneNumber = v
	}
	return e
}

// Validate checks the fields required before anything is normalized.
func (e Event) Validate() error {
	if !present(e.PhoneNumber) {
		return ErrMissingPhoneNumber
	}
	if e.OrderNo == "" {
		return ErrMissingOrderNumber
	}
	return nil
}

// Status is the normalized status of the event.
func (e Event) Status() Status {
	return NormalizeStatus(e.OrderStatus, e.NotificationType)
}

func field(payload map[string]any, key string) string {
	v := payload[key]
	if !present(v) {
		return ""
	}
	return Stringify(v)
}

// present is false for null, "", false and numeric zero.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		return err != nil || (f != 0 && !math.IsNaN(f))
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

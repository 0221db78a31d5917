package order

import "strings"

// Status is a normalized order status. Values outside the constants below are
// carried through verbatim (lower-cased) so new upstream statuses stay visible.
type Status string

const (
	StatusCreated        Status = "created"
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusReadyToShip    Status = "ready_to_ship"
	StatusShipped        Status = "shipped"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRTO            Status = "rto"
	StatusUnknown        Status = "unknown"
)

// Zippee sends orderStatus in a handful of spellings.
var statusCodes = map[string]Status{
	"CREATED":          StatusCreated,
	"ORDER_CREATED":    StatusCreated,
	"CONFIRMED":        StatusConfirmed,
	"PROCESSING":       StatusProcessing,
	"PACKED":           StatusProcessing,
	"READY_TO_SHIP":    StatusReadyToShip,
	"READYTOSHIP":      StatusReadyToShip,
	"SHIPPED":          StatusShipped,
	"DISPATCHED":       StatusShipped,
	"IN_TRANSIT":       StatusInTransit,
	"INTRANSIT":        StatusInTransit,
	"OUT_FOR_DELIVERY": StatusOutForDelivery,
	"OUTFORDELIVERY":   StatusOutForDelivery,
	"DELIVERED":        StatusDelivered,
	"CANCELLED":        StatusCancelled,
	"CANCELED":         StatusCancelled,
	"RTO":              StatusRTO,
	"RETURNED":         StatusRTO,
	"RETURN_TO_ORIGIN": StatusRTO,
}

var notificationTypes = map[string]Status{
	"CREATEDNOTIFICATION":        StatusCreated,
	"CONFIRMEDNOTIFICATION":      StatusConfirmed,
	"PROCESSINGNOTIFICATION":     StatusProcessing,
	"READYTOSHIPNOTIFICATION":    StatusReadyToShip,
	"SHIPPEDNOTIFICATION":        StatusShipped,
	"INTRANSITNOTIFICATION":      StatusInTransit,
	"OUTFORDELIVERYNOTIFICATION": StatusOutForDelivery,
	"DELIVEREDNOTIFICATION":      StatusDelivered,
	"CANCELLEDNOTIFICATION":      StatusCancelled,
	"CANCELEDNOTIFICATION":       StatusCancelled,
	"RTONOTIFICATION":            StatusRTO,
	"RETURNEDNOTIFICATION":       StatusRTO,
}

var phrases = map[Status]string{
	StatusCreated:        "has been confirmed",
	StatusConfirmed:      "has been confirmed",
	StatusProcessing:     "is being processed",
	StatusReadyToShip:    "is ready to ship",
	StatusShipped:        "has been shipped",
	StatusInTransit:      "is in transit",
	StatusOutForDelivery: "is out for delivery",
	StatusDelivered:      "has been delivered",
	StatusCancelled:      "has been cancelled",
	StatusRTO:            "is being returned to origin",
}

var important = map[Status]struct{}{
	StatusShipped:        {},
	StatusOutForDelivery: {},
	StatusDelivered:      {},
	StatusCancelled:      {},
	StatusRTO:            {},
}

// NormalizeStatus maps Zippee's orderStatus, falling back to notificationType.
// orderStatus wins whenever it is recognised.
func NormalizeStatus(orderStatus, notificationType string) Status {
	code := strings.ToUpper(strings.TrimSpace(orderStatus))
	if s, ok := statusCodes[code]; ok {
		return s
	}

	kind := strings.ToUpper(strings.TrimSpace(notificationType))
	if s, ok := notificationTypes[kind]; ok {
		return s
	}

	if code == "" {
		return StatusUnknown
	}
	return Status(strings.ToLower(strings.TrimSpace(orderStatus)))
}

// Important reports whether customers are notified about s, and with which phrase.
func Important(s Status) (string, bool) {
	if _, ok := important[s]; !ok {
		return "", false
	}
	return Phrase(s), true
}

// Known reports whether s is one of the normalized statuses rather than a
// passed-through upstream value.
func Known(s Status) bool {
	if s == StatusUnknown {
		return true
	}
	_, ok := phrases[s]
	return ok
}

// Phrase is the template text describing s, e.g. "has been shipped".
func Phrase(s Status) string {
	if p, ok := phrases[s]; ok {
		return p
	}
	return "has been updated (" + string(s) + ")"
}

package model

import "time"

// DeliveryLog tracks each send attempt.
type DeliveryLog struct {
	ID                   uint64    `json:"id"`
	RequestID            string    `json:"requestId"`
	TokenName            string    `json:"tokenName"`
	Kind                 string    `json:"kind"`
	Message              string    `json:"message"`
	NotificationDisabled bool      `json:"notificationDisabled"`
	Status               string    `json:"status"`
	RemoteStatus         int       `json:"remoteStatus"`
	RemoteMessage        string    `json:"remoteMessage,omitempty"`
	FailureReason        string    `json:"failureReason,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

const (
	DeliveryStatusSuccess = "SUCCESS"
	DeliveryStatusFailed  = "FAILED"
	DeliveryStatusUnknown = "UNKNOWN"
)

// DeliveryLogFilter describes query parameters for log searching.
type DeliveryLogFilter struct {
	TokenName string
	Kind      string
	Status    string
	BeginTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

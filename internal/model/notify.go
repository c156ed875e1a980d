package model

// NotifyRequest is the relay's JSON/form body. Field names match the notify API.
type NotifyRequest struct {
	Message              string   `json:"message" form:"message"`
	NotificationDisabled bool     `json:"notificationDisabled" form:"notificationDisabled"`
	StickerPackageID     int      `json:"stickerPackageId" form:"stickerPackageId"`
	StickerID            int      `json:"stickerId" form:"stickerId"`
	ImageFullsize        string   `json:"imageFullsize" form:"imageFullsize"`
	Tokens               []string `json:"tokens,omitempty" form:"tokens"`
}

// DeliveryResult summarises one send for API callers.
type DeliveryResult struct {
	TokenName     string `json:"tokenName"`
	RequestID     string `json:"requestId"`
	Status        string `json:"status"`
	RemoteStatus  int    `json:"remoteStatus"`
	Message       string `json:"message,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

// BroadcastSummary counts a fan-out send.
type BroadcastSummary struct {
	SendNum    int `json:"sendNum"`
	SuccessNum int `json:"successNum"`
	FailedNum  int `json:"failedNum"`
	UnknownNum int `json:"unknownNum"`
}

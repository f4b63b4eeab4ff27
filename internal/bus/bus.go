// Package bus defines the gate-facing message topics and payloads and the
// transport used to exchange them with the RFID reader hardware.
package bus

// Topics paired with the gate hardware. Requests arrive on the bare topic,
// the matching response is published on the /response topic.
const (
	TopicEntry         = "parking/entry"
	TopicEntryResponse = "parking/entry/response"
	TopicExit          = "parking/exit"
	TopicExitResponse  = "parking/exit/response"
	TopicPaymentStatus = "parking/payment/status"
)

// Payment status values reported on exit responses.
const (
	PaymentStatusSettled             = "SETTLED"
	PaymentStatusInsufficientBalance = "INSUFFICIENT_BALANCE"
)

// GateRequest is the payload published by gate readers on entry and exit.
type GateRequest struct {
	RFID     string `json:"rfid"`
	DeviceID string `json:"deviceId"`
}

// EntryResponse is published on TopicEntryResponse.
type EntryResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	UserName   string `json:"userName,omitempty"`
	SlotNumber int    `json:"slotNumber,omitempty"`
}

// ExitResponse is published on TopicExitResponse.
type ExitResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	UserName        string `json:"userName,omitempty"`
	ParkingFee      int64  `json:"parkingFee,omitempty"`
	ParkingDuration string `json:"parkingDuration,omitempty"`
	PaymentStatus   string `json:"paymentStatus,omitempty"`
	WalletBalance   *int64 `json:"walletBalance,omitempty"`
}

// PaymentStatus is published on TopicPaymentStatus after a wallet top-up.
type PaymentStatus struct {
	RFID          string `json:"rfid"`
	Paid          bool   `json:"paid"`
	WalletBalance int64  `json:"walletBalance"`
}

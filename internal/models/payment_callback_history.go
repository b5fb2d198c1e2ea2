package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentGateway string

const (
	PaymentGatewaySumUp    PaymentGateway = "sumup"
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
	PaymentGatewayMock     PaymentGateway = "mock"
	PaymentGatewayManual   PaymentGateway = "manual"
)

// PaymentCallbackHistory keeps every raw webhook body we received, parsed or not
type PaymentCallbackHistory struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PaymentGateway PaymentGateway `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	CheckoutID     string         `gorm:"type:varchar(100);index" json:"checkout_id"`
	Metadata       datatypes.JSON `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

package services

import (
	"testing"

	"booking_app_echo/internal/models"
)

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		in      GatewayStatus
		want    TransactionTransition
		changes bool
	}{
		{GatewayStatusPaid, TransactionTransition{Status: models.TransactionStatusCompleted, Completes: true}, true},
		{GatewayStatusFailed, TransactionTransition{Status: models.TransactionStatusFailed}, true},
		{GatewayStatusCancelled, TransactionTransition{Status: models.TransactionStatusCancelled}, true},
		{GatewayStatusExpired, TransactionTransition{Status: models.TransactionStatusExpired, Expires: true}, true},
		{GatewayStatusPending, TransactionTransition{}, false},
		{GatewayStatus("SOMETHING_NEW"), TransactionTransition{}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, ok := MapGatewayStatus(tt.in)
			if ok != tt.changes || got != tt.want {
				t.Errorf("MapGatewayStatus(%s) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.changes)
			}
		})
	}
}

func TestNormalizeGatewayStatus(t *testing.T) {
	tests := map[string]GatewayStatus{
		"PAID":      GatewayStatusPaid,
		"paid":      GatewayStatusPaid,
		" Failed ":  GatewayStatusFailed,
		"EXPIRED":   GatewayStatusExpired,
		"canceled":  GatewayStatusCancelled,
		"CANCELLED": GatewayStatusCancelled,
		"PENDING":   GatewayStatusPending,
		"":          GatewayStatusPending,
		"SENT":      GatewayStatusPending,
	}
	for in, want := range tests {
		if got := NormalizeGatewayStatus(in); got != want {
			t.Errorf("NormalizeGatewayStatus(%q) = %s; want %s", in, got, want)
		}
	}
}

func TestMidtransStatus(t *testing.T) {
	tests := []struct {
		status, fraud string
		want          GatewayStatus
	}{
		{"settlement", "", GatewayStatusPaid},
		{"capture", "accept", GatewayStatusPaid},
		{"capture", "", GatewayStatusPaid},
		{"capture", "challenge", GatewayStatusPending},
		{"pending", "", GatewayStatusPending},
		{"deny", "", GatewayStatusFailed},
		{"failure", "", GatewayStatusFailed},
		{"cancel", "", GatewayStatusCancelled},
		{"expire", "", GatewayStatusExpired},
		{"refund", "", GatewayStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.fraud, func(t *testing.T) {
			if got := MidtransStatus(tt.status, tt.fraud); got != tt.want {
				t.Errorf("MidtransStatus(%q, %q) = %s; want %s", tt.status, tt.fraud, got, tt.want)
			}
		})
	}
}

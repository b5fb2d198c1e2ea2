package services

import (
	"fmt"
	"log"

	"booking_app_echo/internal/config"
)

// NewGateway returns the payment provider selected by PAYMENT_PROVIDER
func NewGateway(cfg config.Config) (PaymentGateway, error) {
	switch cfg.PaymentProvider {
	case "", "sumup":
		return NewSumUpService(cfg.SumUp), nil
	case "midtrans":
		if cfg.Midtrans.ServerKey == "" {
			return nil, fmt.Errorf("MIDTRANS_SERVER_KEY is not set")
		}
		return NewMidtransService(cfg.Midtrans), nil
	case "mock":
		if !cfg.IsDev() {
			log.Println("Warning: mock payment provider enabled outside dev, every checkout will be reported paid")
		}
		return NewMockGateway(cfg.AppURL), nil
	}
	return nil, fmt.Errorf("unsupported payment provider %q", cfg.PaymentProvider)
}

// NewNotifier fans confirmations out to every channel listed in NOTIFY_CHANNELS
func NewNotifier(cfg config.Config) Notifier {
	var channels MultiNotifier
	if cfg.HasChannel("email") {
		channels = append(channels, NewEmailNotifier(NewEmailService()))
	}
	if cfg.HasChannel("whatsapp") {
		channels = append(channels, NewWhatsappNotifier(NewWahaService()))
	}
	if cfg.HasChannel("amqp") {
		if cfg.RabbitMQURL == "" {
			log.Println("Warning: amqp channel enabled but RABBITMQ_URL is not set")
		} else {
			channels = append(channels, NewQueueNotifier(cfg.RabbitMQURL))
		}
	}
	if len(channels) == 0 {
		log.Println("Warning: no notification channel enabled, confirmations will not be sent")
	}
	return channels
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type WahaService struct {
	baseURL     string
	apiKey      string
	session     string
	countryCode string
	client      *http.Client
}

func NewWahaService() *WahaService {
	url := os.Getenv("WAHA_BASE_URL")
	if url == "" {
		url = "http://waha:3000"
	}
	session := os.Getenv("WAHA_SESSION")
	if session == "" {
		session = "default"
	}
	cc := os.Getenv("WAHA_DEFAULT_COUNTRY_CODE")
	if cc == "" {
		cc = "33"
	}
	return &WahaService{
		baseURL:     strings.TrimRight(url, "/"),
		apiKey:      os.Getenv("WAHA_API_KEY"),
		session:     session,
		countryCode: cc,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WahaService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// NormalizeChatID turns a phone number into a WhatsApp chat id. National numbers
// (leading 0) get the default country code; group ids are returned untouched.
func NormalizeChatID(chatId, countryCode string) string {
	chatId = strings.TrimSpace(chatId)

	if strings.HasSuffix(chatId, "@g.us") {
		return chatId
	}

	chatId = strings.TrimSuffix(chatId, "@c.us")
	chatId = strings.NewReplacer(" ", "", ".", "", "-", "", "(", "", ")", "").Replace(chatId)

	switch {
	case strings.HasPrefix(chatId, "+"):
		chatId = strings.TrimPrefix(chatId, "+")
	case strings.HasPrefix(chatId, "00"):
		chatId = strings.TrimPrefix(chatId, "00")
	case strings.HasPrefix(chatId, "0"):
		chatId = countryCode + strings.TrimPrefix(chatId, "0")
	}

	return chatId + "@c.us"
}

// SendMessage marks the chat as seen, then sends the text
func (s *WahaService) SendMessage(ctx context.Context, phone, text string) error {
	chatId := NormalizeChatID(phone, s.countryCode)

	if err := s.makeRequest(ctx, http.MethodPost, "/api/sendSeen", map[string]string{
		"chatId":  chatId,
		"session": s.session,
	}); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}

	if err := s.makeRequest(ctx, http.MethodPost, "/api/sendText", map[string]string{
		"chatId":  chatId,
		"text":    text,
		"session": s.session,
	}); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	return nil
}

package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pataid/backend/internal/utils"
)

// SMSService sends SMS through an HTTP gateway. When the gateway is not
// configured it logs and drops messages instead of failing, so claims still
// work in development.
type SMSService struct {
	gatewayURL string
	apiKey     string
	senderID   string
	client     *http.Client
}

// NewSMSService creates a new SMS service
func NewSMSService() *SMSService {
	return &SMSService{
		gatewayURL: os.Getenv("SMS_GATEWAY_URL"),
		apiKey:     os.Getenv("SMS_API_KEY"),
		senderID:   os.Getenv("SMS_SENDER_ID"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether the gateway credentials are present.
func (s *SMSService) Configured() bool {
	return s.gatewayURL != "" && s.apiKey != ""
}

// SendOTP delivers a one-time verification code.
func (s *SMSService) SendOTP(phone, code string) error {
	message := fmt.Sprintf("Your PataID verification code is %s. It expires in 10 minutes. Do not share it with anyone.", code)
	return s.send(phone, message)
}

// SendOwnerFoundAlert tells an owner by SMS that their ID was reported found.
func (s *SMSService) SendOwnerFoundAlert(phone, reportNumber, campus string) error {
	message := fmt.Sprintf("PataID: an ID matching your number was reported found on %s campus (report %s). Log in to claim it.", campus, reportNumber)
	return s.send(phone, message)
}

func (s *SMSService) send(phone, message string) error {
	formatted := utils.FormatPhoneNumber(phone)
	if formatted == "" {
		return fmt.Errorf("invalid phone number")
	}

	if !s.Configured() {
		log.Printf("SMS gateway not configured, dropping message to %s", utils.MaskIdentifier(formatted))
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"to":      formatted,
		"from":    s.senderID,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}

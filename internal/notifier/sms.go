package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rosterhq/oncall-api/internal/config"
	"github.com/rosterhq/oncall-api/pkg/circuitbreaker"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

// HTTPSMSSender posts messages to a JSON SMS gateway. The gateway's
// wire protocol is deliberately minimal: {from, to, message} in,
// {id} out. A circuit breaker keeps a dead gateway from stalling a
// whole dispatch run on timeouts.
type HTTPSMSSender struct {
	url     string
	token   string
	from    string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewHTTPSMSSender(cfg config.SMSConfig) *HTTPSMSSender {
	return &HTTPSMSSender{
		url:    cfg.GatewayURL,
		token:  cfg.Token,
		from:   cfg.From,
		client: &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "sms-gateway",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

type smsRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

type smsResponse struct {
	ID string `json:"id"`
}

func (s *HTTPSMSSender) SendSMS(ctx context.Context, phone, text string) (string, error) {
	if s.url == "" {
		return "", apperrors.Configuration("sms gateway is not configured", nil)
	}

	body, err := json.Marshal(smsRequest{From: s.from, To: phone, Message: text})
	if err != nil {
		return "", apperrors.Channel("failed to encode sms request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Channel("failed to build sms request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	var out smsResponse
	err = s.breaker.Execute(func() error {
		resp, err := s.client.Do(req)
		if err != nil {
			return apperrors.Channel("sms gateway unreachable", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return apperrors.Channel(fmt.Sprintf("sms gateway returned %d", resp.StatusCode), nil)
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return apperrors.Channel("failed to decode sms response", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInternal) {
			// Breaker rejection is a plain error; classify it.
			return "", apperrors.Channel("sms gateway circuit open", err)
		}
		return "", err
	}
	return out.ID, nil
}

// SMSCapableChannel combines the two senders into one Channel.
type SMSCapableChannel struct {
	*SMTPEmailSender
	*HTTPSMSSender
}

func NewChannel(smtp config.SMTPConfig, sms config.SMSConfig) *SMSCapableChannel {
	return &SMSCapableChannel{
		SMTPEmailSender: NewSMTPEmailSender(smtp),
		HTTPSMSSender:   NewHTTPSMSSender(sms),
	}
}

var _ Channel = (*SMSCapableChannel)(nil)

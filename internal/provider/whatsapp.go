package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 30 * time.Second

// whatsappSendRequest is the Cloud API message payload for a text send.
type whatsappSendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             whatsappTextBody `json:"text"`
}

type whatsappTextBody struct {
	Body string `json:"body"`
}

type whatsappSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *whatsappAPIError `json:"error"`
}

type whatsappAPIError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WhatsAppProvider delivers messages via the WhatsApp Cloud API
// ({api_url}/{phone_number_id}/messages with bearer auth).
type WhatsAppProvider struct {
	client      *resty.Client
	endpoint    string
	accessToken string
}

func NewWhatsAppProvider(apiURL, phoneNumberID, accessToken string) (*WhatsAppProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewWhatsAppProviderWithClient(apiURL, phoneNumberID, accessToken, client)
}

func NewWhatsAppProviderWithClient(apiURL, phoneNumberID, accessToken string, client *resty.Client) (*WhatsAppProvider, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		return nil, fmt.Errorf("whatsapp api url is required")
	}
	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return nil, fmt.Errorf("invalid whatsapp api url: %w", err)
	}
	phoneNumberID = strings.TrimSpace(phoneNumberID)
	if phoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone number id is required")
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("whatsapp access token is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &WhatsAppProvider{
		client:      client,
		endpoint:    fmt.Sprintf("%s/%s/messages", apiURL, phoneNumberID),
		accessToken: accessToken,
	}, nil
}

func (p *WhatsAppProvider) Send(ctx context.Context, destination, body string) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	reqBody := whatsappSendRequest{
		MessagingProduct: "whatsapp",
		To:               destination,
		Type:             "text",
		Text:             whatsappTextBody{Body: body},
	}

	var parsed whatsappSendResponse
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(p.accessToken).
		SetBody(reqBody).
		SetResult(&parsed).
		SetError(&parsed).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "whatsapp request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "whatsapp returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		if len(parsed.Messages) == 0 || strings.TrimSpace(parsed.Messages[0].ID) == "" {
			return nil, &ProviderError{
				StatusCode: statusCode,
				Message:    "whatsapp acknowledged send without a message id",
				Transient:  true,
			}
		}

		return &SendResult{
			ProviderMessageID: parsed.Messages[0].ID,
			StatusCode:        statusCode,
		}, nil
	}

	perr := &ProviderError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("whatsapp returned status %d", statusCode),
		Transient:  isTransientHTTPStatus(statusCode),
	}
	if parsed.Error != nil {
		perr.Code = parsed.Error.Code
		if msg := strings.TrimSpace(parsed.Error.Message); msg != "" {
			perr.Message = msg
		}
	}

	return nil, perr
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

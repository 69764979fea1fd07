package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andresrivas/colegio-ledger/internal/domain/message"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioGateway delivers SMS and WhatsApp messages through the Twilio
// Messages API. Only the status and provider sid are consumed from the
// response.
type TwilioGateway struct {
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
	baseURL    string
}

type TwilioOption func(*TwilioGateway)

func WithHTTPClient(c *http.Client) TwilioOption {
	return func(g *TwilioGateway) { g.httpClient = c }
}

func WithBaseURL(u string) TwilioOption {
	return func(g *TwilioGateway) { g.baseURL = u }
}

// NewTwilioGateway creates a Twilio-backed notification gateway.
func NewTwilioGateway(accountSID, authToken, fromNumber string, opts ...TwilioOption) *TwilioGateway {
	g := &TwilioGateway{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    twilioAPIBase,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *TwilioGateway) Name() string { return "twilio" }

func (g *TwilioGateway) Supports(channel message.Channel) bool {
	return channel == message.ChannelSMS || channel == message.ChannelWhatsApp
}

// Send performs a single delivery attempt. Gateway rejections come back as
// an unsuccessful Result rather than an error; errors are reserved for
// transport failures.
func (g *TwilioGateway) Send(ctx context.Context, channel message.Channel, destinationPhone, body string) (*Result, error) {
	if !g.Supports(channel) {
		return nil, fmt.Errorf("twilio: no transport for channel %s", channel)
	}

	to, from := destinationPhone, g.fromNumber
	if channel == message.ChannelWhatsApp {
		to = "whatsapp:" + strings.TrimPrefix(destinationPhone, "+")
		from = "whatsapp:" + strings.TrimPrefix(g.fromNumber, "+")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", g.baseURL, g.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build send request: %w", err)
	}
	httpReq.SetBasicAuth(g.accountSID, g.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read send response: %w", err)
	}

	var out struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode send response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Result{Success: false, ErrorMessage: out.Message}, nil
	}
	return &Result{Success: true, ProviderMessageID: out.SID}, nil
}

package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// WebhookSender posts one structured payload to the chat webhook.
type WebhookSender interface {
	Send(payload any) error
}

type httpWebhookSender struct {
	client  *fasthttp.Client
	url     string
	timeout time.Duration
}

// NewWebhookSender builds the fasthttp-backed sender.
func NewWebhookSender(url string) WebhookSender {
	return &httpWebhookSender{
		client:  &fasthttp.Client{},
		url:     url,
		timeout: 10 * time.Second,
	}
}

func (s *httpWebhookSender) Send(payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := s.client.DoTimeout(req, resp, s.timeout); err != nil {
		return util.NewExternalServiceError("webhook", err)
	}
	if resp.StatusCode() >= 300 {
		return util.NewExternalServiceError("webhook",
			fmt.Errorf("webhook post: status %d", resp.StatusCode()))
	}
	return nil
}

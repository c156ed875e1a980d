package notifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultEndpoint is the notification-send endpoint.
const DefaultEndpoint = "https://notify-api.line.me/api/notify"

// DefaultTimeout bounds a single exchange when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Transport performs HTTP exchanges for exactly one Send and is closed afterwards.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
	Close() error
}

// TransportFactory returns a fresh Transport for each call.
type TransportFactory func() Transport

// Option customises a Client.
type Option func(*Client)

// WithTransportFactory replaces the per-call transport.
func WithTransportFactory(f TransportFactory) Option {
	return func(c *Client) {
		if f != nil {
			c.newTransport = f
		}
	}
}

// Client sends notifications to the notify API. It holds no per-call state
// and is safe for concurrent use.
type Client struct {
	endpoint     string
	logger       zerolog.Logger
	newTransport TransportFactory
}

// New creates a notify API client. An empty rawURL selects DefaultEndpoint.
func New(rawURL string, timeout time.Duration, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultEndpoint
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("endpoint must be an absolute url")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		endpoint:     parsed.String(),
		logger:       logger.With().Str("component", "notifyclient").Logger(),
		newTransport: httpTransportFactory(timeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the URL notifications are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts msg to the destination bound to token and waits for the reply.
//
// A remote 200, 400, 401 or 500 yields the decoded Response and a nil error;
// the caller inspects Response.Status. Every other outcome yields a Response
// holding StatusUnknown and a *SendError describing why.
func (c *Client) Send(ctx context.Context, token string, msg Message) (Response, error) {
	if msg == nil {
		return unknownResponse(), &SendError{Reason: ReasonRequest, Err: errors.New("message is nil")}
	}
	body, contentType, err := msg.encode()
	if err != nil {
		c.logger.Info().Err(err).Str("kind", msg.Kind()).Msg("build notify request")
		return unknownResponse(), &SendError{Reason: ReasonRequest, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return unknownResponse(), &SendError{Reason: ReasonRequest, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	transport := c.newTransport()
	defer func() {
		if err := transport.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("close transport")
		}
	}()

	done := make(chan result, 1)
	go func() {
		resp, err := c.exchange(transport, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		// The request carries ctx, so the exchange unwinds promptly; the
		// transport must outlive it.
		<-done
		c.logger.Info().Err(ctx.Err()).Msg("notify request abandoned")
		return unknownResponse(), &SendError{Reason: ReasonCanceled, Err: ctx.Err()}
	}
}

// SendText sends a plain message.
func (c *Client) SendText(ctx context.Context, token, message string, notificationDisabled bool) (Response, error) {
	return c.Send(ctx, token, Text{Message: message, NotificationDisabled: notificationDisabled})
}

// SendSticker sends a message with a sticker.
func (c *Client) SendSticker(ctx context.Context, token, message string, packageID, stickerID int, notificationDisabled bool) (Response, error) {
	return c.Send(ctx, token, Sticker{
		Message:              message,
		PackageID:            packageID,
		StickerID:            stickerID,
		NotificationDisabled: notificationDisabled,
	})
}

// SendImageURL sends a message with a remote image.
func (c *Client) SendImageURL(ctx context.Context, token, message, imageURL string, notificationDisabled bool) (Response, error) {
	return c.Send(ctx, token, ImageURL{Message: message, URL: imageURL, NotificationDisabled: notificationDisabled})
}

// SendImageFile uploads the image at path alongside the message.
func (c *Client) SendImageFile(ctx context.Context, token, message, path string, notificationDisabled bool) (Response, error) {
	return c.Send(ctx, token, ImageFile{Message: message, Path: path, NotificationDisabled: notificationDisabled})
}

type result struct {
	resp Response
	err  error
}

func (c *Client) exchange(transport Transport, req *http.Request) (Response, error) {
	resp, err := transport.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.logger.Info().Err(err).Msg("notify request canceled")
			return unknownResponse(), &SendError{Reason: ReasonCanceled, Err: err}
		}
		c.logger.Info().Err(err).Msg("notify request failed")
		return unknownResponse(), &SendError{Reason: ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	if !c.classify(resp.StatusCode) {
		return unknownResponse(), &SendError{Reason: ReasonUnclassifiedStatus, HTTPStatus: resp.StatusCode}
	}

	// Fields missing from the body keep their unknown defaults.
	payload := unknownResponse()
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Info().Err(err).Int("http_status", resp.StatusCode).Msg("decode notify response")
		return unknownResponse(), &SendError{Reason: ReasonDecode, HTTPStatus: resp.StatusCode, Err: err}
	}
	return payload, nil
}

// classify logs the HTTP status and reports whether its body is a JSON Response.
func (c *Client) classify(code int) bool {
	switch code {
	case http.StatusOK:
		c.logger.Debug().Msg("success")
	case http.StatusBadRequest:
		c.logger.Info().Msg("bad request")
	case http.StatusUnauthorized:
		c.logger.Info().Msg("invalid access token")
	case http.StatusInternalServerError:
		c.logger.Info().Msg("failure due to server error")
	default:
		c.logger.Info().Int("http_status", code).Msg("processed over time or stopped")
		return false
	}
	return true
}

type httpTransport struct {
	client *http.Client
	rt     *http.Transport
}

func httpTransportFactory(timeout time.Duration) TransportFactory {
	return func() Transport {
		rt := http.DefaultTransport.(*http.Transport).Clone()
		return &httpTransport{
			client: &http.Client{Timeout: timeout, Transport: rt},
			rt:     rt,
		}
	}
}

func (t *httpTransport) Do(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

func (t *httpTransport) Close() error {
	t.rt.CloseIdleConnections()
	return nil
}

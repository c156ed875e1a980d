package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goog1e-app/line-notify/internal/config"
	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/notifyclient"
	"github.com/goog1e-app/line-notify/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DirectTokenName labels delivery logs for caller-supplied tokens.
const DirectTokenName = "direct"

// Sender delivers one message to the destination bound to token.
type Sender interface {
	Send(ctx context.Context, token string, msg notifyclient.Message) (notifyclient.Response, error)
}

// NotifyService resolves tokens, sends through the notify client and records
// every attempt.
type NotifyService struct {
	sender          Sender
	tokens          *TokenService
	store           storage.Store
	logger          zerolog.Logger
	broadcastLimit  int
	revokeOnInvalid bool
}

// NewNotifyService builds NotifyService.
func NewNotifyService(sender Sender, tokens *TokenService, store storage.Store, cfg *config.Config, logger zerolog.Logger) *NotifyService {
	limit := cfg.Notify.BroadcastLimit
	if limit <= 0 {
		limit = 1
	}
	return &NotifyService{
		sender:          sender,
		tokens:          tokens,
		store:           store,
		logger:          logger.With().Str("component", "notify").Logger(),
		broadcastLimit:  limit,
		revokeOnInvalid: cfg.Notify.RevokeOnInvalid,
	}
}

// SendWithToken sends msg using a registered token. The error covers local
// failures only (unknown or revoked token); remote outcomes are in the result.
func (s *NotifyService) SendWithToken(ctx context.Context, name string, msg notifyclient.Message) (model.DeliveryResult, error) {
	bearer, err := s.tokens.Resolve(ctx, name)
	if err != nil {
		return model.DeliveryResult{TokenName: name, Status: model.DeliveryStatusFailed, Message: err.Error()}, err
	}
	return s.deliver(ctx, name, bearer, msg), nil
}

// SendDirect sends msg with a caller-supplied bearer token.
func (s *NotifyService) SendDirect(ctx context.Context, bearer string, msg notifyclient.Message) model.DeliveryResult {
	return s.deliver(ctx, DirectTokenName, bearer, msg)
}

// Broadcast sends msg to the named tokens, or to every active token when
// names is empty. Lookup failures are reported as FAILED results.
func (s *NotifyService) Broadcast(ctx context.Context, msg notifyclient.Message, names []string) (model.BroadcastSummary, []model.DeliveryResult, error) {
	if msg == nil || strings.TrimSpace(msg.Text()) == "" {
		return model.BroadcastSummary{}, nil, fmt.Errorf("message is required")
	}
	if len(names) == 0 {
		active, err := s.tokens.ActiveNames(ctx)
		if err != nil {
			return model.BroadcastSummary{}, nil, fmt.Errorf("list tokens: %w", err)
		}
		names = active
	}
	if len(names) == 0 {
		return model.BroadcastSummary{}, nil, fmt.Errorf("no target tokens resolved")
	}
	next, err := replayable(msg)
	if err != nil {
		return model.BroadcastSummary{}, nil, err
	}

	var (
		results = make([]model.DeliveryResult, 0, len(names))
		mu      sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.broadcastLimit)
	for _, name := range dedupe(names) {
		g.Go(func() error {
			res, err := s.SendWithToken(gctx, name, next())
			if err != nil {
				s.logger.Warn().Err(err).Str("token", name).Msg("skip broadcast target")
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].TokenName < results[j].TokenName })
	summary := model.BroadcastSummary{SendNum: len(results)}
	for _, res := range results {
		switch res.Status {
		case model.DeliveryStatusSuccess:
			summary.SuccessNum++
		case model.DeliveryStatusUnknown:
			summary.UnknownNum++
		default:
			summary.FailedNum++
		}
	}
	return summary, results, nil
}

func (s *NotifyService) deliver(ctx context.Context, name, bearer string, msg notifyclient.Message) model.DeliveryResult {
	requestID := uuid.NewString()
	resp, sendErr := s.sender.Send(ctx, bearer, msg)

	result := model.DeliveryResult{
		TokenName:    name,
		RequestID:    requestID,
		RemoteStatus: resp.Status,
		Message:      resp.Message,
	}
	switch {
	case sendErr != nil || !resp.Known():
		result.Status = model.DeliveryStatusUnknown
		if reason := notifyclient.ReasonOf(sendErr); reason != 0 {
			result.FailureReason = reason.String()
		}
		if sendErr != nil && result.Message == "" {
			result.Message = sendErr.Error()
		}
	case resp.OK():
		result.Status = model.DeliveryStatusSuccess
	default:
		result.Status = model.DeliveryStatusFailed
	}

	s.logger.Info().
		Str("request_id", requestID).
		Str("token", name).
		Str("kind", msgKind(msg)).
		Str("status", result.Status).
		Int("remote_status", resp.Status).
		Msg("notification delivered")

	if resp.Status == http.StatusUnauthorized && name != DirectTokenName && s.revokeOnInvalid {
		if err := s.tokens.Revoke(ctx, name); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn().Err(err).Str("token", name).Msg("revoke invalid token")
			}
		} else {
			s.logger.Info().Str("token", name).Msg("token revoked after invalid access token reply")
		}
	}

	s.appendLog(ctx, requestID, name, msg, result)
	return result
}

func (s *NotifyService) appendLog(ctx context.Context, requestID, name string, msg notifyclient.Message, result model.DeliveryResult) {
	entry := &model.DeliveryLog{
		RequestID:     requestID,
		TokenName:     name,
		Kind:          msgKind(msg),
		Status:        result.Status,
		RemoteStatus:  result.RemoteStatus,
		RemoteMessage: result.Message,
		FailureReason: result.FailureReason,
	}
	if msg != nil {
		entry.Message = msg.Text()
		entry.NotificationDisabled = msg.Silent()
	}
	// A canceled request still gets logged.
	if err := s.store.AppendDeliveryLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn().Err(err).Str("request_id", requestID).Msg("append delivery log failed")
	}
}

func msgKind(msg notifyclient.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Kind()
}

// replayable lets a message be sent more than once. Uploaded image content
// is buffered so every recipient reads the full file.
func replayable(msg notifyclient.Message) (func() notifyclient.Message, error) {
	file, ok := msg.(notifyclient.ImageFile)
	if !ok || file.Content == nil {
		return func() notifyclient.Message { return msg }, nil
	}
	data, err := io.ReadAll(file.Content)
	if err != nil {
		return nil, fmt.Errorf("read image content: %w", err)
	}
	return func() notifyclient.Message {
		copied := file
		copied.Content = bytes.NewReader(data)
		return copied
	}, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

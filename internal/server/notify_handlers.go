package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/notifyclient"
	"github.com/gofiber/fiber/v2"
)

var errBadRequest = errors.New("bad request")

const headerFailureReason = "X-Notify-Failure"

func (s *Server) handleNotifyDirect(c *fiber.Ctx) error {
	bearer := extractBearerToken(c.Get(fiber.HeaderAuthorization))
	if bearer == "" {
		return c.Status(http.StatusUnauthorized).JSON(notifyclient.Response{
			Status:  http.StatusUnauthorized,
			Message: "missing bearer token",
		})
	}
	msg, _, err := s.parseNotify(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(notifyclient.Response{Status: http.StatusBadRequest, Message: err.Error()})
	}
	return s.replyDelivery(c, s.notifySvc.SendDirect(c.UserContext(), bearer, msg))
}

func (s *Server) handleNotifyNamed(c *fiber.Ctx) error {
	msg, _, err := s.parseNotify(c)
	if err != nil {
		return s.fail(c, err)
	}
	res, err := s.notifySvc.SendWithToken(c.UserContext(), c.Params("name"), msg)
	if err != nil {
		return s.fail(c, err)
	}
	return s.replyDelivery(c, res)
}

func (s *Server) handleBroadcast(c *fiber.Ctx) error {
	msg, tokens, err := s.parseNotify(c)
	if err != nil {
		return s.fail(c, err)
	}
	summary, results, err := s.notifySvc.Broadcast(c.UserContext(), msg, tokens)
	if err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	return c.JSON(model.Success("broadcast sent", fiber.Map{
		"summary": summary,
		"results": results,
	}))
}

// replyDelivery mirrors the remote status when one was reported.
func (s *Server) replyDelivery(c *fiber.Ctx, res model.DeliveryResult) error {
	status := http.StatusBadGateway
	if res.RemoteStatus >= 100 && res.RemoteStatus <= 599 {
		status = res.RemoteStatus
	}
	if res.RequestID != "" {
		c.Set(fiber.HeaderXRequestID, res.RequestID)
	}
	if res.FailureReason != "" {
		c.Set(headerFailureReason, res.FailureReason)
	}
	return c.Status(status).JSON(notifyclient.Response{Status: res.RemoteStatus, Message: res.Message})
}

// parseNotify accepts urlencoded, multipart or JSON bodies using the notify
// API's field names. A multipart imageFile part wins over the other variants.
func (s *Server) parseNotify(c *fiber.Ctx) (notifyclient.Message, []string, error) {
	var req model.NotifyRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, nil, fmt.Errorf("%w: message is required", errBadRequest)
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if fh, err := c.FormFile("imageFile"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return nil, nil, fmt.Errorf("open upload: %w", err)
			}
			defer f.Close()
			data, err := io.ReadAll(io.LimitReader(f, int64(s.maxUpload())+1))
			if err != nil {
				return nil, nil, fmt.Errorf("read upload: %w", err)
			}
			if len(data) > s.maxUpload() {
				return nil, nil, fmt.Errorf("%w: image file exceeds %d bytes", errBadRequest, s.maxUpload())
			}
			return notifyclient.ImageFile{
				Message:              req.Message,
				Filename:             fh.Filename,
				Content:              bytes.NewReader(data),
				NotificationDisabled: req.NotificationDisabled,
			}, req.Tokens, nil
		}
	}

	switch {
	case req.StickerPackageID > 0 || req.StickerID > 0:
		if req.StickerPackageID <= 0 || req.StickerID <= 0 {
			return nil, nil, fmt.Errorf("%w: stickerPackageId and stickerId go together", errBadRequest)
		}
		return notifyclient.Sticker{
			Message:              req.Message,
			PackageID:            req.StickerPackageID,
			StickerID:            req.StickerID,
			NotificationDisabled: req.NotificationDisabled,
		}, req.Tokens, nil
	case strings.TrimSpace(req.ImageFullsize) != "":
		return notifyclient.ImageURL{
			Message:              req.Message,
			URL:                  strings.TrimSpace(req.ImageFullsize),
			NotificationDisabled: req.NotificationDisabled,
		}, req.Tokens, nil
	default:
		return notifyclient.Text{Message: req.Message, NotificationDisabled: req.NotificationDisabled}, req.Tokens, nil
	}
}

func (s *Server) maxUpload() int {
	if s.cfg.Notify.MaxUploadBytes <= 0 {
		return 10 << 20
	}
	return s.cfg.Notify.MaxUploadBytes
}

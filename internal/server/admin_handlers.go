package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/service"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleTokenList(c *fiber.Ctx) error {
	views, err := s.tokenSvc.List(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", views))
}

func (s *Server) handleTokenRegister(c *fiber.Ctx) error {
	var req service.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	view, err := s.tokenSvc.Register(c.UserContext(), req)
	if err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	return c.JSON(model.Success("token registered", view))
}

func (s *Server) handleTokenGet(c *fiber.Ctx) error {
	view, err := s.tokenSvc.Get(c.UserContext(), c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", view))
}

func (s *Server) handleTokenDelete(c *fiber.Ctx) error {
	if err := s.tokenSvc.Delete(c.UserContext(), c.Params("name")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("token deleted", nil))
}

func (s *Server) handleTokenRevoke(c *fiber.Ctx) error {
	if err := s.tokenSvc.Revoke(c.UserContext(), c.Params("name")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("token revoked", nil))
}

func (s *Server) handleTokenActivate(c *fiber.Ctx) error {
	if err := s.tokenSvc.Activate(c.UserContext(), c.Params("name")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("token activated", nil))
}

func (s *Server) handleLogList(c *fiber.Ctx) error {
	page, err := s.logSvc.Query(c.UserContext(), parseLogFilter(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", page))
}

func (s *Server) handleLogCountDate(c *fiber.Ctx) error {
	data, err := s.logSvc.CountByDate(c.UserContext(), c.Query("dateType", "day"), parseLogFilter(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleLogCountStatus(c *fiber.Ctx) error {
	data, err := s.logSvc.CountByStatus(c.UserContext(), parseLogFilter(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleLogCountToken(c *fiber.Ctx) error {
	data, err := s.logSvc.CountByToken(c.UserContext(), parseLogFilter(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func parseLogFilter(c *fiber.Ctx) model.DeliveryLogFilter {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "10"))
	return model.DeliveryLogFilter{
		TokenName: c.Query("token"),
		Kind:      c.Query("kind"),
		Status:    c.Query("status"),
		BeginTime: parseTime(c.Query("beginTime")),
		EndTime:   parseTime(c.Query("endTime")),
		Page:      page,
		PageSize:  pageSize,
	}
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

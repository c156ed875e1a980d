package service

import (
	"context"
	"sort"
	"strings"

	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// DeliveryLogService filters, pages and aggregates delivery logs.
type DeliveryLogService struct {
	store storage.Store
}

// NewDeliveryLogService builds the delivery log service.
func NewDeliveryLogService(store storage.Store) *DeliveryLogService {
	return &DeliveryLogService{store: store}
}

// Query returns one page of logs, newest first.
func (s *DeliveryLogService) Query(ctx context.Context, filter model.DeliveryLogFilter) (*model.DeliveryLogPage, error) {
	logs, err := s.filteredLogs(ctx, filter)
	if err != nil {
		return nil, err
	}

	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	total := len(logs)
	pages := (total + filter.PageSize - 1) / filter.PageSize
	start := total
	// Pages past the end stay empty; checking first avoids overflow on huge page numbers.
	if filter.Page <= pages {
		start = (filter.Page - 1) * filter.PageSize
	}
	end := min(start+filter.PageSize, total)

	return &model.DeliveryLogPage{
		Data:     logs[start:end],
		Total:    total,
		Pages:    pages,
		PageNum:  filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// CountByDate aggregates per day, month or year.
func (s *DeliveryLogService) CountByDate(ctx context.Context, dateType string, filter model.DeliveryLogFilter) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	layout := "2006-01-02"
	switch strings.ToLower(dateType) {
	case "year":
		layout = "2006"
	case "month":
		layout = "2006-01"
	}
	return countBy(logs, "date", func(l *model.DeliveryLog) string {
		return l.CreatedAt.Format(layout)
	}), nil
}

// CountByStatus aggregates by delivery status.
func (s *DeliveryLogService) CountByStatus(ctx context.Context, filter model.DeliveryLogFilter) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	return countBy(logs, "status", func(l *model.DeliveryLog) string {
		return firstNonEmpty(l.Status, model.DeliveryStatusUnknown)
	}), nil
}

// CountByToken aggregates by token name.
func (s *DeliveryLogService) CountByToken(ctx context.Context, filter model.DeliveryLogFilter) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	return countBy(logs, "token", func(l *model.DeliveryLog) string {
		return l.TokenName
	}), nil
}

func (s *DeliveryLogService) filteredLogs(ctx context.Context, filter model.DeliveryLogFilter) ([]*model.DeliveryLog, error) {
	all, err := s.store.ListDeliveryLogs(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]*model.DeliveryLog, 0, len(all))
	for _, log := range all {
		if filter.TokenName != "" && !strings.EqualFold(log.TokenName, filter.TokenName) {
			continue
		}
		if filter.Kind != "" && !strings.EqualFold(log.Kind, filter.Kind) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(log.Status, filter.Status) {
			continue
		}
		if filter.BeginTime != nil && log.CreatedAt.Before(filter.BeginTime.UTC()) {
			continue
		}
		if filter.EndTime != nil && log.CreatedAt.After(filter.EndTime.UTC()) {
			continue
		}
		matches = append(matches, log)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ID > matches[j].ID
	})
	return matches, nil
}

func countBy(logs []*model.DeliveryLog, key string, keyOf func(*model.DeliveryLog) string) []map[string]any {
	counter := make(map[string]int)
	for _, log := range logs {
		counter[keyOf(log)]++
	}
	result := make([]map[string]any, 0, len(counter))
	for k, v := range counter {
		result = append(result, map[string]any{key: k, "count": v})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i][key].(string) < result[j][key].(string)
	})
	return result
}

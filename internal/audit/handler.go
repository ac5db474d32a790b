package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lexdesk/lexdesk/internal/platform/httpx"
	"github.com/lexdesk/lexdesk/internal/shared"
)

// Handler serves read access to the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type timelineEntry struct {
	ActorID      int64          `json:"actor_id"`
	ActorSeq     int64          `json:"actor_seq"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Outcome      string         `json:"outcome"`
	Diff         map[string]any `json:"diff,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

type timelineResponse struct {
	Rows     []timelineEntry `json:"rows"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	HasNext  bool            `json:"has_next"`
}

// Timeline handles GET /audit/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	filters := parseTimelineFilters(r)
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, shared.ErrUnavailable)
		return
	}
	resp := timelineResponse{
		Rows:     make([]timelineEntry, 0, len(result.Rows)),
		Page:     result.Paging.Page,
		PageSize: result.Paging.PageSize,
		HasNext:  result.Paging.HasNext,
	}
	for _, row := range result.Rows {
		resp.Rows = append(resp.Rows, timelineEntry{
			ActorID:      row.ActorID,
			ActorSeq:     row.ActorSeq,
			Action:       row.Action,
			ResourceType: row.ResourceType,
			ResourceID:   row.ResourceID,
			Outcome:      string(row.Outcome),
			Diff:         row.Diff,
			OccurredAt:   row.OccurredAt,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func parseTimelineFilters(r *http.Request) TimelineFilters {
	q := r.URL.Query()
	filters := TimelineFilters{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource"),
	}
	if v, err := strconv.ParseInt(q.Get("actor"), 10, 64); err == nil {
		filters.ActorID = v
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		filters.PageSize = v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filters.From = v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filters.To = v
	}
	return filters
}

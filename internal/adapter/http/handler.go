package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"civbuilders/internal/app/history"
	"civbuilders/internal/app/persistence"
	"civbuilders/internal/app/session"
	"civbuilders/internal/domain/catalog"
	"civbuilders/internal/domain/ledger"
	"civbuilders/internal/domain/progression"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const userIDHeader = "X-User-ID"

type Handler struct {
	Sessions  *session.Manager
	HistoryUC history.UseCase
	Catalog   *catalog.Catalog
	KPI       kpiSnapshotProvider
	CORS      CORSOptions
	Logger    *slog.Logger
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware(h.CORS))
	if h.Logger != nil {
		s.Use(accessLogMiddleware(h.Logger))
	}

	s.GET("/api/catalog", h.catalog)

	game := s.Group("/api/game")
	game.GET("", h.game)
	game.POST("/start", h.start)
	game.POST("/contributions/play", h.playContribution)
	game.POST("/contributions/redraw", h.redrawContributions)
	game.POST("/myths/debunk", h.debunkMyth)
	game.POST("/myths/redraw", h.redrawMyths)
	game.POST("/reset/propose", h.proposeReset)
	game.POST("/reset/confirm", h.confirmReset)
	game.POST("/reset/cancel", h.cancelReset)
	game.GET("/library", h.library)
	game.GET("/history", h.history)

	s.GET("/ops/kpi", h.kpi)
}

type startRequest struct {
	OrderID string `json:"order_id"`
}

type playRequest struct {
	CardID string `json:"card_id"`
}

type debunkRequest struct {
	MythID string `json:"myth_id"`
}

type confirmResetRequest struct {
	Token string `json:"token"`
}

type catalogResponse struct {
	Orders        []catalog.Order            `json:"orders"`
	Contributions []catalog.ContributionCard `json:"contributions"`
	Myths         []catalog.MythCard         `json:"myths"`
}

func (h Handler) catalog(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, catalogResponse{
		Orders:        h.Catalog.Orders(),
		Contributions: h.Catalog.Contributions(),
		Myths:         h.Catalog.Myths(),
	})
}

func (h Handler) game(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	status, err := h.Sessions.Bootstrap(c, userID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	res, err := h.Sessions.Snapshot(c, userID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"result_code": "OK",
		"load":        status,
		"state":       res.View,
		"proposal":    res.Proposal,
	})
}

func (h Handler) start(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var body startRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if strings.TrimSpace(body.OrderID) == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "order_id is required")
		return
	}
	res, err := h.Sessions.Start(c, userID, body.OrderID)
	writeResult(ctx, res, err)
}

func (h Handler) playContribution(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var body playRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if strings.TrimSpace(body.CardID) == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "card_id is required")
		return
	}
	res, err := h.Sessions.PlayContribution(c, userID, body.CardID)
	writeResult(ctx, res, err)
}

func (h Handler) debunkMyth(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var body debunkRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if strings.TrimSpace(body.MythID) == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "myth_id is required")
		return
	}
	res, err := h.Sessions.DebunkMyth(c, userID, body.MythID)
	writeResult(ctx, res, err)
}

func (h Handler) redrawContributions(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := h.Sessions.RedrawContributions(c, userID)
	writeResult(ctx, res, err)
}

func (h Handler) redrawMyths(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := h.Sessions.RedrawMyths(c, userID)
	writeResult(ctx, res, err)
}

func (h Handler) proposeReset(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := h.Sessions.ProposeReset(c, userID)
	writeResult(ctx, res, err)
}

func (h Handler) confirmReset(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var body confirmResetRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if strings.TrimSpace(body.Token) == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "token is required")
		return
	}
	res, err := h.Sessions.ConfirmReset(c, userID, body.Token)
	writeResult(ctx, res, err)
}

func (h Handler) cancelReset(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := h.Sessions.CancelReset(c, userID)
	writeResult(ctx, res, err)
}

func (h Handler) library(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	entries, err := h.Sessions.Library(c, userID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"entries": entries})
}

func (h Handler) history(c context.Context, ctx *app.RequestContext) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	occurredFrom, _ := strconv.ParseInt(string(ctx.Query("occurred_from")), 10, 64)
	occurredTo, _ := strconv.ParseInt(string(ctx.Query("occurred_to")), 10, 64)
	resp, err := h.HistoryUC.Execute(c, history.Request{
		UserID:       userID,
		Limit:        limit,
		OccurredFrom: occurredFrom,
		OccurredTo:   occurredTo,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

var ErrMissingUserIDHeader = errors.New("missing x-user-id header")

func requireUser(ctx *app.RequestContext) (string, bool) {
	userID := strings.TrimSpace(string(ctx.GetHeader(userIDHeader)))
	if userID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_user_id", ErrMissingUserIDHeader.Error())
		return "", false
	}
	return userID, true
}

func writeResult(ctx *app.RequestContext, res session.Result, err error) {
	if err != nil {
		if writeRejectedFromErr(ctx, res.View, err) {
			return
		}
		writeError(ctx, err)
		return
	}
	body := map[string]any{
		"result_code": "OK",
		"outcome":     res.Outcome,
		"state":       res.View,
	}
	if res.Proposal != nil {
		body["proposal"] = res.Proposal
	}
	ctx.JSON(consts.StatusOK, body)
}

func writeError(ctx *app.RequestContext, err error) {
	var storageErr *persistence.StorageError
	switch {
	case errors.Is(err, persistence.ErrIdentityNotReady):
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_user_id", err.Error())
	case errors.Is(err, history.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.As(err, &storageErr):
		writeErrorBody(ctx, consts.StatusInternalServerError, session.CodeStorageError, "storage unavailable")
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// writeRejectedFromErr renders rule rejections together with the unchanged state.
func writeRejectedFromErr(ctx *app.RequestContext, state progression.View, err error) bool {
	if !session.IsRejection(err) {
		return false
	}
	code := session.ErrorCode(err)
	status := consts.StatusConflict
	switch code {
	case session.CodeUnknownOrder, session.CodeUnknownCard, session.CodeUnknownMyth:
		status = consts.StatusNotFound
	case session.CodeIdentityNotReady:
		status = consts.StatusBadRequest
	}
	writeRejected(ctx, status, code, err.Error(), rejectionDetails(err), state)
	return true
}

func rejectionDetails(err error) map[string]any {
	details := map[string]any{}

	var debunkErr *progression.DebunkRejectedError
	if errors.As(err, &debunkErr) && debunkErr != nil {
		details["myth_id"] = debunkErr.MythID
		details["reason_shortfall"] = debunkErr.ReasonShortfall
		missing := debunkErr.MissingPrerequisites
		if missing == nil {
			missing = []progression.Prerequisite{}
		}
		details["missing_prerequisites"] = missing
	}
	var shortErr *ledger.InsufficientResourcesError
	if errors.As(err, &shortErr) && shortErr != nil {
		details["shortfall"] = shortErr.Shortfall
	}
	var resolvedErr *progression.AlreadyResolvedError
	if errors.As(err, &resolvedErr) && resolvedErr != nil {
		details["id"] = resolvedErr.ID
	}
	var transitionErr *progression.InvalidStateTransitionError
	if errors.As(err, &transitionErr) && transitionErr != nil {
		details["operation"] = transitionErr.Operation
		details["phase"] = transitionErr.Phase
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

func writeRejected(ctx *app.RequestContext, status int, code, message string, details map[string]any, state progression.View) {
	ctx.JSON(status, map[string]any{
		"result_code": "REJECTED",
		"error": map[string]any{
			"code":    code,
			"message": message,
			"details": details,
		},
		"state": state,
	})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"maps"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/swingdesk/radar-service/internal/access"
	"github.com/swingdesk/radar-service/internal/activity"
	"github.com/swingdesk/radar-service/internal/models"
	"github.com/swingdesk/radar-service/internal/pipeline"
	"github.com/swingdesk/radar-service/internal/prompts"
	"github.com/swingdesk/radar-service/internal/smart2move"
)

// Messages returned to the client.
const (
	msgUnauthorized     = "Non authentifie."
	msgForbidden        = "Acces refuse."
	msgPlan             = "Fonctionnalite non incluse dans votre plan."
	msgQuota            = "Quota mensuel atteint."
	msgBudget           = "Budget IA mensuel atteint."
	msgNotFound         = "Fichier radar introuvable."
	msgInvalidPayload   = "Payload invalide."
	msgGraphTypeMissing = "Type de graphe Smart2Move requis."
	msgImpactMissing    = "Repere d'impact requis."
	msgTransitionOrder  = "Le debut de transition doit preceder l'impact."
	msgDownload         = "Telechargement du fichier impossible."
	msgPersist          = "Erreur lors de l'enregistrement."
	msgConflict         = "Extraction concurrente detectee."
	msgInternal         = "Erreur interne."
)

var origins = map[string]bool{"upload": true, "library": true, "retry": true, "unknown": true}

// runner executes one authorized extraction.
type runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// Handler holds dependencies for the Extract Lambda.
type Handler struct {
	files    pipeline.FileStore
	gate     *access.Gate
	pipeline runner
	audit    activity.Sink
}

// Handle routes API Gateway requests and answers warmer pings.
func (h *Handler) Handle(ctx context.Context, rawEvent json.RawMessage) (events.APIGatewayProxyResponse, error) {
	var warmer struct {
		Source string `json:"source"`
	}
	if json.Unmarshal(rawEvent, &warmer) == nil && warmer.Source == "radar.warmer" {
		return events.APIGatewayProxyResponse{StatusCode: 200, Body: "warm"}, nil
	}

	var event events.APIGatewayProxyRequest
	if err := json.Unmarshal(rawEvent, &event); err != nil {
		return errResponse(400, "invalid request")
	}

	switch {
	case event.HTTPMethod == "OPTIONS":
		return models.OK()
	case event.Resource == "/radar-files/{id}/extract" && event.HTTPMethod == "POST",
		event.Resource == "/radar/extract" && event.HTTPMethod == "POST":
		return h.handleExtract(ctx, event)
	default:
		return errResponse(404, "not found")
	}
}

type extractPayload struct {
	RadarFileID         *string  `json:"radarFileId"`
	Smart2MoveGraphType *string  `json:"smart2MoveGraphType"`
	ImpactMarkerX       *float64 `json:"impactMarkerX"`
	TransitionStartX    *float64 `json:"transitionStartX"`
	Origin              *string  `json:"origin"`
}

type extractRequest struct {
	fileID      string
	graphType   string
	impactX     *float64
	transitionX *float64
	origin      string
}

// parseExtractRequest validates the body. The radar file id may come from the
// body or the path; the body wins when both are set.
func parseExtractRequest(event events.APIGatewayProxyRequest) (extractRequest, bool) {
	var p extractPayload
	if body := strings.TrimSpace(event.Body); body != "" {
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return extractRequest{}, false
		}
	}

	req := extractRequest{origin: "unknown", impactX: p.ImpactMarkerX, transitionX: p.TransitionStartX}
	if p.RadarFileID != nil {
		req.fileID = strings.TrimSpace(*p.RadarFileID)
	}
	if req.fileID == "" {
		req.fileID = event.PathParameters["id"]
	}
	if req.fileID == "" {
		return req, false
	}

	if p.Smart2MoveGraphType != nil {
		if !smart2move.IsGraphType(*p.Smart2MoveGraphType) {
			return req, false
		}
		req.graphType = strings.ToLower(strings.TrimSpace(*p.Smart2MoveGraphType))
	}
	for _, v := range []*float64{p.ImpactMarkerX, p.TransitionStartX} {
		if v != nil && (*v < 0 || *v > 1) {
			return req, false
		}
	}
	if p.Origin != nil {
		if !origins[*p.Origin] {
			return req, false
		}
		req.origin = *p.Origin
	}
	return req, true
}

func (h *Handler) handleExtract(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, ok := parseExtractRequest(event)
	if !ok {
		return errResponse(422, msgInvalidPayload)
	}

	caller, err := h.gate.Identify(ctx, event)
	if errors.Is(err, access.ErrUnauthorized) {
		return errResponse(401, msgUnauthorized)
	}
	if err != nil {
		log.Printf("ERROR identifying caller: %v", err)
		return errResponse(500, msgInternal)
	}

	file, err := h.files.Load(ctx, req.fileID)
	if errors.Is(err, pipeline.ErrNotFound) {
		return errResponse(404, msgNotFound)
	}
	if err != nil {
		log.Printf("ERROR loading radar file %s: %v", req.fileID, err)
		return errResponse(500, msgInternal)
	}

	requestID := event.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ev := activity.Event{
		ActorID:  caller.UserID,
		OrgID:    caller.OrgID,
		EntityID: file.ID,
		Metadata: map[string]any{"origin": req.origin, "source": file.Source, "requestId": requestID},
	}

	if err := h.gate.CheckOrg(caller, file.OrgID); err != nil {
		return h.deny(ctx, ev, err)
	}

	cfg := prompts.ResolveRadarPromptConfig(file.Source, req.graphType)
	var markers smart2move.Markers
	if cfg.IsSmart2Move() {
		if req.graphType == "" {
			return errResponse(422, msgGraphTypeMissing)
		}
		if req.impactX == nil {
			return errResponse(422, msgImpactMissing)
		}
		markers, err = smart2move.NormalizeMarkers(*req.impactX, req.transitionX)
		if err != nil {
			return errResponse(422, msgTransitionOrder)
		}
	}

	if err := h.authorize(ctx, caller.OrgID); err != nil {
		if denialMessage(err) == "" {
			log.Printf("ERROR checking entitlement for org %s: %v", caller.OrgID, err)
			return errResponse(500, msgInternal)
		}
		return h.deny(ctx, ev, err)
	}
	activity.Record(ctx, h.audit, with(ev, activity.ActionAllowed, "", nil))

	out, err := h.pipeline.Run(ctx, pipeline.Request{
		File:      file,
		Config:    cfg,
		Markers:   markers,
		UserID:    caller.UserID,
		RequestID: requestID,
		Origin:    req.origin,
	})
	if err != nil {
		status, msg := failureResponse(err)
		log.Printf("ERROR extracting radar file %s: %v", file.ID, err)
		activity.Record(ctx, h.audit, with(ev, activity.ActionFailed, msg, map[string]any{"error": err.Error()}))
		return errResponse(status, msg)
	}

	activity.Record(ctx, h.audit, with(ev, activity.ActionSuccess, "", map[string]any{
		"hasWarning": out.Warning != "",
		"status":     out.Status,
		"tokens":     out.Usage.TotalTokens,
	}))
	return models.OK()
}

func (h *Handler) authorize(ctx context.Context, orgID string) error {
	ent, err := h.gate.CheckEntitlement(ctx, orgID)
	if err != nil {
		return err
	}
	if err := h.gate.CheckQuota(ctx, orgID, ent); err != nil {
		return err
	}
	return h.gate.CheckBudget(ctx, orgID, ent)
}

func (h *Handler) deny(ctx context.Context, ev activity.Event, err error) (events.APIGatewayProxyResponse, error) {
	msg := denialMessage(err)
	activity.Record(ctx, h.audit, with(ev, activity.ActionDenied, msg, map[string]any{"reason": access.Reason(err)}))
	return errResponse(403, msg)
}

// with copies ev for one action, merging extra into its metadata.
func with(ev activity.Event, action, message string, extra map[string]any) activity.Event {
	meta := make(map[string]any, len(ev.Metadata)+len(extra))
	maps.Copy(meta, ev.Metadata)
	maps.Copy(meta, extra)
	ev.Action, ev.Message, ev.Metadata = action, message, meta
	return ev
}

func denialMessage(err error) string {
	switch {
	case errors.Is(err, access.ErrForbidden):
		return msgForbidden
	case errors.Is(err, access.ErrPlan):
		return msgPlan
	case errors.Is(err, access.ErrQuotaExceeded):
		return msgQuota
	case errors.Is(err, access.ErrBudgetExhausted):
		return msgBudget
	default:
		return ""
	}
}

func failureResponse(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrConflict):
		return 409, msgConflict
	case errors.Is(err, pipeline.ErrDownload):
		return 500, msgDownload
	case errors.Is(err, pipeline.ErrExtraction):
		return 500, pipeline.UserMessage(err)
	default:
		return 500, msgPersist
	}
}

func errResponse(status int, msg string) (events.APIGatewayProxyResponse, error) {
	return models.ErrorResponse(status, msg)
}

// Package access gates radar extraction: caller identity, org membership,
// plan entitlement, rolling quota and monthly AI budget.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/swingdesk/radar-service/internal/db"
)

// FeatureRadarExtraction is the plan feature flag checked by CheckEntitlement.
const FeatureRadarExtraction = "radar_extraction"

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrPlan            = errors.New("feature not in plan")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrBudgetExhausted = errors.New("ai budget exhausted")
)

// Identity is the authenticated caller and the org of their profile.
type Identity struct {
	UserID string
	OrgID  string
	Role   string
}

// Entitlement is the org's plan allowance for radar extraction. Zero quota or
// budget means unlimited.
type Entitlement struct {
	Enabled      bool
	MonthlyQuota int64
	BudgetUSD    float64
}

// Spender reports an org's AI spend for the current month.
type Spender interface {
	MonthlySpend(ctx context.Context, orgID string) (float64, error)
}

// Gate runs the access checks against Postgres.
type Gate struct {
	db         db.DB
	spend      Spender
	windowDays int
}

// NewGate creates a Gate. windowDays is the rolling quota window.
func NewGate(database db.DB, spend Spender, windowDays int) *Gate {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Gate{db: database, spend: spend, windowDays: windowDays}
}

// CallerID reads the user id set by the API Gateway authorizer: the JWT "sub"
// claim, or the Lambda authorizer principalId.
func CallerID(req events.APIGatewayProxyRequest) string {
	auth := req.RequestContext.Authorizer
	if auth == nil {
		return ""
	}
	if claims, ok := auth["claims"].(map[string]any); ok {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			return sub
		}
	}
	if pid, ok := auth["principalId"].(string); ok {
		return pid
	}
	return ""
}

// Identify resolves the caller and their profile org.
func (g *Gate) Identify(ctx context.Context, req events.APIGatewayProxyRequest) (Identity, error) {
	userID := CallerID(req)
	if userID == "" {
		return Identity{}, ErrUnauthorized
	}

	rows, err := g.db.Query(ctx, "SELECT org_id, role FROM profiles WHERE id = $1", userID)
	if err != nil {
		return Identity{}, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 || rows[0]["org_id"] == nil {
		return Identity{}, ErrUnauthorized
	}
	return Identity{
		UserID: userID,
		OrgID:  db.StrVal(rows[0]["org_id"]),
		Role:   db.StrVal(rows[0]["role"]),
	}, nil
}

// CheckOrg rejects callers whose profile org differs from the file's org.
func (g *Gate) CheckOrg(id Identity, fileOrgID string) error {
	if id.OrgID == "" || id.OrgID != fileOrgID {
		return ErrForbidden
	}
	return nil
}

// CheckEntitlement loads the org's plan allowance and rejects orgs without
// the radar extraction feature.
func (g *Gate) CheckEntitlement(ctx context.Context, orgID string) (Entitlement, error) {
	rows, err := g.db.Query(ctx,
		`SELECT pf.enabled, pf.monthly_quota, pf.ai_budget_usd
		 FROM organizations o
		 JOIN plan_features pf ON pf.plan_id = o.plan_id
		 WHERE o.id = $1 AND pf.feature = $2`, orgID, FeatureRadarExtraction)
	if err != nil {
		return Entitlement{}, fmt.Errorf("get entitlement: %w", err)
	}
	if len(rows) == 0 {
		return Entitlement{}, ErrPlan
	}

	row := rows[0]
	enabled, _ := row["enabled"].(bool)
	if !enabled {
		return Entitlement{}, ErrPlan
	}
	quota, _ := db.ToInt64(row["monthly_quota"])
	budget, _ := db.ToFloat64(row["ai_budget_usd"])
	return Entitlement{Enabled: true, MonthlyQuota: quota, BudgetUSD: budget}, nil
}

// CheckQuota counts extractions in the rolling window.
func (g *Gate) CheckQuota(ctx context.Context, orgID string, ent Entitlement) error {
	if ent.MonthlyQuota <= 0 {
		return nil
	}
	rows, err := g.db.Query(ctx,
		`SELECT COUNT(*) AS used FROM radar_usage
		 WHERE org_id = $1 AND phase = 'extract'
		   AND created_at >= NOW() - make_interval(days => $2)`, orgID, g.windowDays)
	if err != nil {
		return fmt.Errorf("count usage: %w", err)
	}
	var used int64
	if len(rows) > 0 {
		used, _ = db.ToInt64(rows[0]["used"])
	}
	if used >= ent.MonthlyQuota {
		return ErrQuotaExceeded
	}
	return nil
}

// CheckBudget compares this month's AI spend with the plan ceiling.
func (g *Gate) CheckBudget(ctx context.Context, orgID string, ent Entitlement) error {
	if ent.BudgetUSD <= 0 || g.spend == nil {
		return nil
	}
	spent, err := g.spend.MonthlySpend(ctx, orgID)
	if err != nil {
		return fmt.Errorf("get spend: %w", err)
	}
	if spent >= ent.BudgetUSD {
		return ErrBudgetExhausted
	}
	return nil
}

// Reason is the short audit reason for a gating error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "org_mismatch"
	case errors.Is(err, ErrPlan):
		return "plan"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, ErrBudgetExhausted):
		return "budget"
	default:
		return "error"
	}
}

package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RoleAdmin    = "role:admin"
	RoleCustomer = "role:customer"
	RoleSystem   = "role:system"
)

const (
	ObjectPaymentPlan  = "payment_plan"
	ObjectCredit       = "credit"
	ObjectInstallment  = "installment"
	ObjectHistory      = "credit_history"
	ObjectNotification = "notification"
	ObjectJob          = "job"
)

const (
	ActionPlanView   = "payment_plan.view"
	ActionPlanCreate = "payment_plan.create"
	ActionPlanUpdate = "payment_plan.update"
	ActionPlanDelete = "payment_plan.delete"

	ActionCreditCreate  = "credit.create"
	ActionCreditView    = "credit.view"
	ActionCreditApprove = "credit.approve"
	ActionCreditReject  = "credit.reject"
	ActionCreditPayoff  = "credit.payoff_quote"
	ActionCreditExport  = "credit.export"

	ActionInstallmentPay     = "installment.pay"
	ActionInstallmentReceipt = "installment.receipt"

	ActionHistoryView = "credit_history.view"

	ActionNotificationView   = "notification.view"
	ActionNotificationResend = "notification.resend"

	ActionJobRun = "job.run"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := roleForActor(actor)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(actor, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("actor", actor),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleForActor(actor string) (string, error) {
	if actor == "system" {
		return RoleSystem, nil
	}
	kind, rawID, ok := strings.Cut(actor, ":")
	if !ok {
		return "", ErrInvalidActor
	}
	id, err := snowflake.ParseString(rawID)
	if err != nil || id == 0 {
		return "", ErrInvalidActor
	}
	switch kind {
	case "admin":
		return RoleAdmin, nil
	case "customer":
		return RoleCustomer, nil
	default:
		return "", ErrInvalidActor
	}
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Customers manage their own credits; ownership is checked by the handler.
		{RoleCustomer, ObjectPaymentPlan, ActionPlanView},
		{RoleCustomer, ObjectCredit, ActionCreditCreate},
		{RoleCustomer, ObjectCredit, ActionCreditView},
		{RoleCustomer, ObjectCredit, ActionCreditPayoff},
		{RoleCustomer, ObjectCredit, ActionCreditExport},

		// Admin permissions
		{RoleAdmin, ObjectPaymentPlan, ActionPlanView},
		{RoleAdmin, ObjectPaymentPlan, ActionPlanCreate},
		{RoleAdmin, ObjectPaymentPlan, ActionPlanUpdate},
		{RoleAdmin, ObjectPaymentPlan, ActionPlanDelete},
		{RoleAdmin, ObjectCredit, ActionCreditView},
		{RoleAdmin, ObjectCredit, ActionCreditApprove},
		{RoleAdmin, ObjectCredit, ActionCreditReject},
		{RoleAdmin, ObjectCredit, ActionCreditPayoff},
		{RoleAdmin, ObjectCredit, ActionCreditExport},
		{RoleAdmin, ObjectInstallment, ActionInstallmentPay},
		{RoleAdmin, ObjectInstallment, ActionInstallmentReceipt},
		{RoleAdmin, ObjectHistory, ActionHistoryView},
		{RoleAdmin, ObjectNotification, ActionNotificationView},
		{RoleAdmin, ObjectNotification, ActionNotificationResend},
		{RoleAdmin, ObjectJob, ActionJobRun},

		// System (scheduler, order consumer)
		{RoleSystem, ObjectCredit, "*"},
		{RoleSystem, ObjectInstallment, "*"},
		{RoleSystem, ObjectNotification, "*"},
		{RoleSystem, ObjectJob, "*"},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

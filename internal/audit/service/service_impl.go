package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/audit/domain"
	"github.com/smallbiznis/cicilan/internal/audit/masking"
	"github.com/smallbiznis/cicilan/internal/auditcontext"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, db *gorm.DB, entry domain.Entry) error {
	if entry.CreditID == 0 {
		return domain.ErrInvalidCredit
	}
	if !entry.Action.Valid() {
		return domain.ErrInvalidAction
	}
	if db == nil {
		db = s.db
	}

	actorType, actorID := auditcontext.ActorFromContext(ctx)
	payload := masking.MaskMetadata(entry.Metadata)
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	record := domain.HistoryRecord{
		ID:             s.genID.Generate(),
		CreditID:       entry.CreditID,
		Action:         entry.Action,
		ActorType:      domain.ActorType(actorType),
		ActorID:        normalize(actorID),
		PreviousStatus: entry.PreviousStatus,
		NewStatus:      entry.NewStatus,
		Note:           strings.TrimSpace(entry.Note),
		CreatedAt:      s.clock.Now().UTC(),
	}
	if entry.Amount != nil {
		record.Amount = decimal.NewNullDecimal(*entry.Amount)
	}
	if len(payload) > 0 {
		record.Metadata = datatypes.JSONMap(payload)
	}
	record.IPAddress = normalize(auditcontext.IPAddressFromContext(ctx))
	record.UserAgent = normalize(auditcontext.UserAgentFromContext(ctx))

	if err := s.repo.Insert(ctx, db, &record); err != nil {
		s.log.Warn("failed to write credit history",
			zap.String("credit_id", entry.CreditID.String()),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListHistoryRequest) (domain.ListHistoryResponse, error) {
	if req.CreditID == 0 {
		return domain.ListHistoryResponse{}, domain.ErrInvalidCredit
	}

	var afterID snowflake.ID
	rawAfter, err := req.AfterID()
	if err != nil {
		return domain.ListHistoryResponse{}, domain.ErrInvalidPageToken
	}
	if rawAfter != "" {
		afterID, err = snowflake.ParseString(rawAfter)
		if err != nil || afterID == 0 {
			return domain.ListHistoryResponse{}, domain.ErrInvalidPageToken
		}
	}

	action := domain.Action(strings.TrimSpace(req.Action))
	if action != "" && !action.Valid() {
		return domain.ListHistoryResponse{}, domain.ErrInvalidAction
	}

	pageSize := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		CreditID: req.CreditID,
		Action:   action,
		AfterID:  afterID,
		Limit:    pageSize,
	})
	if err != nil {
		return domain.ListHistoryResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.HistoryRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	records := make([]domain.HistoryRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := domain.ListHistoryResponse{History: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func normalize(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Package core bundles the infrastructure and domain modules every binary needs.
package core

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/audit"
	"github.com/smallbiznis/cicilan/internal/authorization"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/config"
	"github.com/smallbiznis/cicilan/internal/credit"
	"github.com/smallbiznis/cicilan/internal/customer"
	"github.com/smallbiznis/cicilan/internal/notification"
	"github.com/smallbiznis/cicilan/internal/observability"
	"github.com/smallbiznis/cicilan/internal/order"
	"github.com/smallbiznis/cicilan/internal/paymentplan"
	"github.com/smallbiznis/cicilan/internal/providers"
	"github.com/smallbiznis/cicilan/internal/ratelimit"
	"github.com/smallbiznis/cicilan/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("core",
	// Infrastructure
	config.Module,
	observability.Module,
	fx.Provide(NewIDNode),
	db.Module,
	clock.Module,
	ratelimit.Module,
	providers.Module,

	// Domains
	audit.Module,
	authorization.Module,
	customer.Module,
	order.Module,
	paymentplan.Module,
	notification.Module,
	credit.Module,
)

// NewIDNode builds the snowflake generator. Each running process needs its own node id.
func NewIDNode(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}

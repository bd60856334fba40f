package providers

import (
	"github.com/smallbiznis/cicilan/internal/providers/email"
	"github.com/smallbiznis/cicilan/internal/providers/pdf"
	"github.com/smallbiznis/cicilan/internal/providers/slack"
	"github.com/smallbiznis/cicilan/internal/providers/sms"
	"github.com/smallbiznis/cicilan/internal/providers/whatsapp"
	"github.com/smallbiznis/cicilan/internal/providers/xlsx"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	whatsapp.Module,
	sms.Module,
	slack.Module,
	pdf.Module,
	xlsx.Module,
)

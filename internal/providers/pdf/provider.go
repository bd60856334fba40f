package pdf

import (
	"context"
	"io"

	"github.com/smallbiznis/cicilan/internal/providers/document"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

type Provider interface {
	GenerateSchedule(ctx context.Context, data document.ScheduleData) (io.Reader, error)
	GenerateReceipt(ctx context.Context, data document.ReceiptData) (io.Reader, error)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

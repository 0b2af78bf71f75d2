package system

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/instrumentation"
	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
)

// FXModule provides the system *Instrumentation and contributes its
// definition to the instrumentation registry. A Config may be supplied to
// tune the data source.
var FXModule = fx.Module("system",
	fx.Provide(
		NewFromParams,
		instrumentation.AsInstrumentation(definitionOf),
	),
)

// Params groups the dependencies of NewFromParams.
type Params struct {
	fx.In

	Config Config `optional:"true"`
	Logger *logger.Logger
}

// NewFromParams builds the system instrumentation for fx.
func NewFromParams(p Params) (*Instrumentation, error) {
	return New(p.Config, p.Logger)
}

func definitionOf(s *Instrumentation) *instrumentation.Definition {
	return s.Definition()
}

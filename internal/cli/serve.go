package cli

import (
	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/config"
	"github.com/ghaggin/courseweb/internal/logger"
	"github.com/ghaggin/courseweb/internal/middleware"
	"github.com/ghaggin/courseweb/internal/session"
	"github.com/ghaggin/courseweb/internal/tracing"
	"github.com/ghaggin/courseweb/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the browser client",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app := fx.New(serveOptions(config.Path(opts.configPath)))
			if err := app.Err(); err != nil {
				return err
			}

			app.Run()
			return nil
		},
	}
}

func serveOptions(path config.Path) fx.Option {
	return fx.Options(
		fx.Supply(path),
		fx.Provide(
			config.New,
			logger.New,
			newRegistry,
			tracing.New,
			func(tp *sdktrace.TracerProvider) trace.TracerProvider { return tp },
			middleware.NewSessionManager,
			func(sm *middleware.SessionManager) session.Store { return sm },
			func(sm *middleware.SessionManager) api.TokenSource { return sm },
			api.New,
			session.New,
		),
		web.Module,
		fx.Invoke(web.RegisterHooks),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

type registryOut struct {
	fx.Out

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

func newRegistry() registryOut {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registryOut{Registerer: reg, Gatherer: reg}
}

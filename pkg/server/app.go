package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"GovPulse/internal/domain/repository"
	"GovPulse/internal/gateway"
	"GovPulse/internal/usecase"
	"GovPulse/pkg/config"
	xhttp "GovPulse/pkg/http"
	pkgkafka "GovPulse/pkg/kafka"
	applogger "GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

// Version is the service version reported by the status endpoint and the
// startup banner.
const Version = "0.3.0"

// Components holds everything the app runs and owns. Archiver, Consumer,
// Bridge, Ledger and Producer may be nil when the corresponding feature is
// disabled.
type Components struct {
	Stream     *stream.Client
	Dispatcher *usecase.AgentDispatcher
	Evaluator  *usecase.PolicyEvaluator
	Applier    *usecase.ExecutionApplier
	Archiver   *usecase.Archiver
	Hub        *gateway.Hub
	Consumer   *pkgkafka.Consumer
	Bridge     *usecase.KafkaTickBridge
	Effects    repository.EffectLog
	Ledger     repository.Ledger
	Producer   *pkgkafka.Producer
	Handler    xhttp.Handler
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	c          Components
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, log: log, c: c}
}

// Run starts every pipeline service plus the HTTP surface and blocks until
// interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	runService := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && ctx.Err() == nil {
				a.log.Error(name+" stopped", applogger.Error(err))
			}
		}()
	}

	runService("dispatcher", a.c.Dispatcher.Run)
	runService("evaluator", a.c.Evaluator.Run)
	runService("applier", a.c.Applier.Run)
	runService("gateway", a.c.Hub.Run)
	if a.c.Archiver != nil {
		runService("archiver", a.c.Archiver.Run)
	}
	a.log.Info("pipeline started",
		applogger.String("env", a.cfg.Environment),
		applogger.Bool("ledger", a.c.Archiver != nil),
	)

	if a.c.Consumer != nil && a.c.Bridge != nil {
		a.c.Consumer.RegisterHandler(a.c.Bridge)
		if err := a.c.Consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka tick bridge started", applogger.String("topic", a.c.Bridge.Topic()))
	}

	a.httpServer = xhttp.NewServer(a.c.Handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	a.log.Info("shutdown signal received")

	cancel()
	wg.Wait()
	return a.shutdown()
}

// shutdown gracefully stops the remaining services and closes resources.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.c.Producer != nil {
		if err := a.c.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.c.Effects != nil {
		if err := a.c.Effects.Close(); err != nil {
			a.log.Warn("effect log close error", applogger.Error(err))
		}
	}
	if a.c.Ledger != nil {
		if err := a.c.Ledger.Close(); err != nil {
			a.log.Warn("ledger close error", applogger.Error(err))
		}
	}
	if err := a.c.Stream.Close(); err != nil {
		a.log.Warn("stream close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}

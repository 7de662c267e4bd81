package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lightdark-study/internal/config"
	"lightdark-study/internal/database"
	"lightdark-study/internal/models"
	"lightdark-study/internal/prediction"
	"lightdark-study/internal/repository"
	"lightdark-study/internal/router"
	"lightdark-study/internal/services"
	"lightdark-study/internal/session"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the study host (default command).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) loadProtocol(path string) (*models.Protocol, error) {
	if path == "" {
		return models.DefaultProtocol(), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, path)
	}
	return models.LoadProtocol(path)
}

// sessionEnv builds the environment of the next participant run from the
// current configuration.
func sessionEnv(protocol *models.Protocol) func() session.Env {
	return func() session.Env {
		c := config.Current()
		return session.Env{
			Now:       time.Now,
			Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
			Design:    c.Study.Calibration.Design(),
			Params:    c.Study.Calibration.Params(),
			Predictor: prediction.NewService(c.Study.Prediction.Params()),
			Protocol:  protocol,
			NewEpoch:  uuid.NewString,
			Debug:     c.Server.Debug,
		}
	}
}

func delaysFrom(c config.CalibrationConfig) session.Delays {
	return session.Delays{
		FittsReady: c.FittsReadyDelay,
		HicksMin:   c.HicksMinDelay,
		HicksMax:   c.HicksMaxDelay,
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := config.Conf
	log := a.log

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	protocol, err := a.loadProtocol(cfg.Study.ProtocolFile)
	if err != nil {
		return fmt.Errorf("failed to load study protocol: %w", err)
	}
	log.Info("Study protocol loaded",
		zap.Int("conditions", len(protocol.Conditions)),
		zap.Int("tasks", len(protocol.Tasks)),
	)

	opts := []session.Option{session.WithDelays(delaysFrom(cfg.Study.Calibration))}
	if cfg.Database.Archive {
		db, err := database.Open(a.root, cfg.Database, log)
		if err != nil {
			return err
		}
		archiver := services.NewArchiver(log, repository.NewArchiveRepository(db))
		opts = append(opts, session.WithCompletionHook(archiver.Hook))
	}

	ctrl := session.NewController(sessionEnv(protocol), log, opts...)
	defer ctrl.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(log, cfg.Server, ctrl),
		ReadHeaderTimeout: 10 * time.Second,
	}
	watchdog := services.NewWatchdog(log, ctrl, func() time.Duration {
		return config.Current().Server.IdleTimeout
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening on http://" + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return watchdog.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

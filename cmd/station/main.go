package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"staffattend/internal/apiclient"
	"staffattend/internal/capture"
	"staffattend/internal/config"
	"staffattend/internal/faceclient"
	"staffattend/internal/logging"
	"staffattend/internal/matcher"
)

// Station watches one or more cameras and records attendance for the people
// it recognizes.
func main() {
	cfg, err := config.LoadStation()
	log := logging.Must(cfg.LogLevel, cfg.LogFormat).With(zap.String("station", cfg.StationID))
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := apiclient.New(cfg.APIURL, cfg.StationID)
	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	m := matcher.New(cfg.MatchThreshold,
		matcher.WithIndex(matcher.NewIndex(cfg.MatcherIndex)),
		matcher.WithLogger(log.Named("matcher")),
	)

	sessionCfg := capture.SessionConfig{
		Interval:      cfg.CaptureEvery,
		Cooldown:      cfg.Cooldown,
		RecordTimeout: cfg.RecordTimeout,
		Location:      cfg.Location(),
		AttachPhoto:   cfg.AttachPhoto,
	}
	sessions := make([]*capture.Session, 0, len(cfg.Cameras))
	for _, spec := range cfg.Cameras {
		src, err := capture.ParseSource(spec)
		if err != nil {
			log.Fatal("bad camera source", zap.String("source", spec), zap.Error(err))
		}
		sessions = append(sessions, capture.NewSession(src, face, m, api, sessionCfg, log.Named("session").With(zap.String("source", src.Name()))))
	}

	st := capture.NewStation(m, api, cfg.GalleryRefresh, log, sessions...)
	log.Info("station started", zap.Int("cameras", len(sessions)), zap.String("api", cfg.APIURL))
	if err := st.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("station stopped", zap.Error(err))
	}
	log.Info("station stopped")
}

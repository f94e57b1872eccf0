package service_interface

import (
	"fmt"
	"time"

	"github.com/channelforge/forcemove/internal/config"
	"github.com/channelforge/forcemove/internal/core/application"
	"github.com/channelforge/forcemove/internal/infrastructure/chain"
	db "github.com/channelforge/forcemove/internal/infrastructure/db"
	msg "github.com/channelforge/forcemove/internal/infrastructure/msg"
	scheduler "github.com/channelforge/forcemove/internal/infrastructure/scheduler/gocron"
	web "github.com/channelforge/forcemove/internal/interface/web"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	Start() error
	Stop()
}

type service struct {
	appSvc application.Service
	webSvc *web.Service
}

func NewService() (Service, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %s", err)
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}

	repoManager, err := db.NewService(db.ServiceConfig{
		Datadir: cfg.Datadir,
		Logger:  log.New(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %s", err)
	}

	chainSvc := chain.NewService(
		cfg.AdjudicatorURL, time.Duration(cfg.ChainPollInterval)*time.Second,
	)
	msgSvc := msg.NewService(repoManager.Messages())
	schedulerSvc := scheduler.NewScheduler()

	appSvc, err := application.NewService(
		cfg.HubID, key, cfg.SweepInterval,
		chainSvc, msgSvc, repoManager, schedulerSvc,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create app service: %s", err)
	}

	webSvc := web.NewService(cfg.HTTPPort, appSvc)

	return &service{appSvc, webSvc}, nil
}

func (s *service) Start() error {
	if err := s.appSvc.Start(); err != nil {
		return err
	}
	go func() {
		if err := s.webSvc.Start(); err != nil {
			log.WithError(err).Fatal("http server exited")
		}
	}()
	return nil
}

func (s *service) Stop() {
	s.webSvc.Stop()
	s.appSvc.Stop()
}

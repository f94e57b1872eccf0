package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/channelforge/forcemove/internal/core/application"
	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Service is the hub's HTTP surface: the relay endpoint, channel lookups
// and prometheus metrics.
type Service struct {
	server *http.Server
	appSvc application.Service
}

func NewService(port uint32, appSvc application.Service) *Service {
	svc := &Service{appSvc: appSvc}

	router := mux.NewRouter()
	router.HandleFunc("/v1/messages", svc.handleMessage).Methods(http.MethodPost)
	router.HandleFunc("/v1/channels/{channelId}", svc.handleGetChannel).Methods(http.MethodGet)
	router.HandleFunc("/v1/info", svc.handleInfo).Methods(http.MethodGet)
	router.HandleFunc("/healthz", svc.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Use(metricsMiddleware)

	svc.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	return svc
}

func (s *Service) Start() error {
	log.Infof("hub listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:all
	s.server.Shutdown(ctx)
}

func (s *Service) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		messagesTotal.WithLabelValues("malformed").Inc()
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid message body: %s", err))
		return
	}

	if err := s.appSvc.HandleMessage(r.Context(), msg); err != nil {
		if errors.Is(err, application.ErrUnsupportedConfig) {
			messagesTotal.WithLabelValues("unsupported").Inc()
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		messagesTotal.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("failed to process message")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	messagesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelId"]
	record, err := s.appSvc.GetChannel(r.Context(), channelID)
	if err != nil || record == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel %s not found", channelID))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	address, err := s.appSvc.GetAddress(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:all
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

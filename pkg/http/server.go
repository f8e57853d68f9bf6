// Copyright 2023 the post2post authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package http terminates the relay's public URL: it decodes the
// envelope, hands it to the relay and encodes the result. It holds no
// policy of its own.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/post2post/relay/pkg/relay"
)

type ServerConfig struct {
	ListenAddress string
	TailnetDomain string
	// MaxElapsedTime bounds each request; it must sit under the
	// platform's 30 second invocation ceiling.
	MaxElapsedTime time.Duration
}

func NewConfig(listenAddress string) *ServerConfig {
	return &ServerConfig{
		ListenAddress:  listenAddress,
		MaxElapsedTime: 28 * time.Second,
	}
}

type Server struct {
	cfg    *ServerConfig
	relay  *relay.Relay
	mutex  sync.Mutex
	server *http.Server
}

func NewWebServer(config *ServerConfig, r *relay.Relay) *Server {
	return &Server{cfg: config, relay: r}
}

func (s *Server) Serve() error {
	s.mutex.Lock()
	s.server = &http.Server{Addr: s.cfg.ListenAddress, Handler: Handler(s.cfg, s.relay)}
	s.mutex.Unlock()

	log.Infof("listening %s", s.cfg.ListenAddress)

	return s.server.ListenAndServe()
}

// Handler builds the full routing stack; split out so tests can drive
// it without a listener.
func Handler(config *ServerConfig, r *relay.Relay) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Handle("/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "pong") }))
	newHealthHandler(config.TailnetDomain).Install(router, config.MaxElapsedTime)
	newRelayHandler(r).Install(router, config.MaxElapsedTime)

	return corsHandler(LoggingHandler(router))
}

func (s *Server) Stop(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.server == nil {
		return
	}

	log.Infoln("starting server shutdown")
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.server.Shutdown(c)
	log.Infoln("gracefully shutdown server")
}

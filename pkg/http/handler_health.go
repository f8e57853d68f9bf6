// Copyright 2023 the post2post authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type healthHandler struct {
	domain string
}

func newHealthHandler(domain string) *healthHandler {
	return &healthHandler{domain: domain}
}

func (h *healthHandler) Install(router *mux.Router, maxElapsed time.Duration) {
	router.Handle("/health", adapt(withMeter("health", h), maxElapsed)).Methods("GET")
}

func (h *healthHandler) Handle(ctx context.Context, w http.ResponseWriter, req *http.Request) (int, error) {
	if h.domain == "" {
		return http.StatusInternalServerError, fmt.Errorf("no tailnet domain configured")
	}

	fmt.Fprint(w, "ok")
	return http.StatusOK, nil
}

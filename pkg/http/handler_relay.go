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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/post2post/relay/pkg/relay"
)

const maxEnvelopeBytes = 6 << 20

type relayHandler struct {
	relay *relay.Relay
}

func newRelayHandler(r *relay.Relay) *relayHandler {
	return &relayHandler{relay: r}
}

func (h *relayHandler) Install(router *mux.Router, maxElapsed time.Duration) {
	router.Handle("/", adapt(withMeter("relay", h), maxElapsed)).Methods("POST")
}

func (h *relayHandler) Handle(ctx context.Context, w http.ResponseWriter, req *http.Request) (int, error) {
	timer := prometheus.NewTimer(handlerTimer.WithLabelValues("relay"))
	defer timer.ObserveDuration()

	var envelope relay.Envelope
	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxEnvelopeBytes))
	if err := decoder.Decode(&envelope); err != nil {
		return http.StatusBadRequest, fmt.Errorf("malformed envelope")
	}

	result := h.relay.Handle(ctx, &envelope)
	if result.Status == relay.StatusFailure {
		return writeFailure(w, result)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("error encoding result: %s", err.Error())
	}

	return http.StatusOK, nil
}

// writeFailure maps failure kinds onto statuses. Auth and policy
// failures get fixed generic bodies; credential failures are opaque;
// dispatch failures keep their kind so the caller can decide whether a
// retry makes sense. Nothing here ever echoes AWS detail, credentials
// or role ARNs.
func writeFailure(w http.ResponseWriter, result *relay.Result) (int, error) {
	switch result.ErrorKind {
	case relay.KindMalformedEnvelope:
		return http.StatusBadRequest, fmt.Errorf("malformed envelope")
	case relay.KindUntrustedOrigin:
		return http.StatusUnauthorized, fmt.Errorf("unauthorized")
	case relay.KindOutOfScope:
		return http.StatusForbidden, fmt.Errorf("forbidden")
	case relay.KindAssumeRoleDenied:
		return http.StatusBadGateway, fmt.Errorf("credentials unavailable")
	case relay.KindCredentialTimeout:
		return http.StatusGatewayTimeout, fmt.Errorf("credentials unavailable")
	}

	status := http.StatusBadGateway
	if result.ErrorKind == relay.KindDispatchTimeout {
		status = http.StatusGatewayTimeout
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(result)
	return status, nil
}

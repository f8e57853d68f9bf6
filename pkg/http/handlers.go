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

	log "github.com/sirupsen/logrus"

	"github.com/post2post/relay/pkg/statsd"
)

// handler is what request handlers implement; the adapter maps their
// (status, error) result onto the response.
type handler interface {
	Handle(ctx context.Context, w http.ResponseWriter, req *http.Request) (int, error)
}

// adapts between handler and http.Handler, bounding each request with
// the configured deadline
type handlerAdapter struct {
	h          handler
	maxElapsed time.Duration
}

func (a *handlerAdapter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), a.maxElapsed)
	defer cancel()

	status, err := a.h.Handle(ctx, w, req)

	if err != nil {
		log.WithFields(RequestFields(req)).WithField("status", status).Errorf("error processing request: %s", err.Error())
		http.Error(w, err.Error(), status)
	}
}

func adapt(h handler, maxElapsed time.Duration) *handlerAdapter {
	return &handlerAdapter{h: h, maxElapsed: maxElapsed}
}

// records response counts per handler and status bucket
type metricHandler struct {
	name string
	h    handler
}

func withMeter(name string, h handler) handler {
	return &metricHandler{
		name: name,
		h:    h,
	}
}

func (m *metricHandler) Handle(ctx context.Context, w http.ResponseWriter, r *http.Request) (int, error) {
	status, err := m.h.Handle(ctx, w, r)
	bucket := getStatusBucket(status)
	responses.WithLabelValues(m.name, bucket).Inc()
	statsd.Increment(fmt.Sprintf("handler.%s.%s", m.name, bucket))
	return status, err
}

func getStatusBucket(status int) string {
	if status >= 200 && status < 300 {
		return "2xx"
	}
	if status >= 300 && status < 400 {
		return "3xx"
	}
	if status >= 400 && status < 500 {
		return "4xx"
	}
	if status >= 500 && status < 600 {
		return "5xx"
	}
	return "unknown"
}

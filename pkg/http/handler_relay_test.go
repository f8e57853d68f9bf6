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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"

	"github.com/post2post/relay/pkg/aws/sts"
	"github.com/post2post/relay/pkg/relay"
	"github.com/post2post/relay/pkg/statsd"
	"github.com/post2post/relay/pkg/tailnet"
)

func init() {
	statsd.New("", "", time.Millisecond)
}

// stubProvider stands in for the credentials cache; the janitor-less
// stub keeps leaktest quiet.
type stubProvider struct {
	acquireCount int
	err          error
}

func (s *stubProvider) CredentialsForRole(ctx context.Context, role *sts.ResolvedRole) (*sts.Credentials, error) {
	s.acquireCount++
	if s.err != nil {
		return nil, s.err
	}
	return sts.NewCredentials("stub-access-key", "stub-secret-key", "stub-token", time.Now().Add(15*time.Minute)), nil
}

// the kind of error text the SDK produces; must never reach callers
func awsError() error {
	return errors.New("AccessDenied: user is not authorized to perform sts:AssumeRole on arn:aws:iam::123456789012:role/remote/deploy")
}

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(ctx context.Context, credentials *sts.Credentials, payload []byte) ([]byte, error) {
	return payload, nil
}

func testHandler(t *testing.T, provider sts.CredentialsProvider) http.Handler {
	t.Helper()

	validator, err := tailnet.NewValidator("example.ts.net", tailnet.MatchSuffix, nil)
	if err != nil {
		t.Fatal("error creating validator:", err)
	}
	resolver, _ := sts.NewResolverForAccount("123456789012")
	r := relay.New(validator, resolver, provider, echoDispatcher{})

	config := NewConfig(":0")
	config.TailnetDomain = "example.ts.net"
	config.MaxElapsedTime = 5 * time.Second
	return Handler(config, r)
}

func postEnvelope(t *testing.T, handler http.Handler, envelope *relay.Envelope) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(envelope)
	if err != nil {
		t.Fatal("error encoding envelope:", err)
	}
	r, _ := http.NewRequest("POST", "/", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, r)
	return rr
}

func TestRelaysEnvelope(t *testing.T) {
	defer leaktest.Check(t)()

	rr := postEnvelope(t, testHandler(t, &stubProvider{}), &relay.Envelope{
		Origin:  "node1.example.ts.net",
		Role:    "remote/deploy",
		Payload: []byte("ping"),
	})

	if rr.Code != http.StatusOK {
		t.Fatal("unexpected status, was", rr.Code, rr.Body.String())
	}
	if content := rr.Header().Get("Content-Type"); content != "application/json" {
		t.Error("expected json result, was", content)
	}

	var result relay.Result
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatal("error decoding result:", err)
	}
	if result.Status != relay.StatusSuccess {
		t.Error("unexpected status, was", result.Status)
	}
	if string(result.Body) != "ping" {
		t.Error("unexpected body, was", string(result.Body))
	}
}

func TestUntrustedOriginIsGenericUnauthorized(t *testing.T) {
	defer leaktest.Check(t)()

	provider := &stubProvider{}
	rr := postEnvelope(t, testHandler(t, provider), &relay.Envelope{
		Origin:  "node1.evil.net",
		Role:    "remote/deploy",
		Payload: []byte("ping"),
	})

	if rr.Code != http.StatusUnauthorized {
		t.Error("unexpected status, was", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "unauthorized" {
		t.Error("expected generic body, was", rr.Body.String())
	}
	if provider.acquireCount != 0 {
		t.Error("expected zero acquisitions, was", provider.acquireCount)
	}
}

func TestOutOfScopeRoleIsForbidden(t *testing.T) {
	defer leaktest.Check(t)()

	provider := &stubProvider{}
	rr := postEnvelope(t, testHandler(t, provider), &relay.Envelope{
		Origin:  "node1.example.ts.net",
		Role:    "admin",
		Payload: []byte("ping"),
	})

	if rr.Code != http.StatusForbidden {
		t.Error("unexpected status, was", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "forbidden" {
		t.Error("expected generic body, was", rr.Body.String())
	}
	if provider.acquireCount != 0 {
		t.Error("expected zero acquisitions, was", provider.acquireCount)
	}
}

func TestAssumeRoleDenialIsOpaque(t *testing.T) {
	defer leaktest.Check(t)()

	rr := postEnvelope(t, testHandler(t, &stubProvider{err: awsError()}), &relay.Envelope{
		Origin:  "node1.example.ts.net",
		Role:    "remote/deploy",
		Payload: []byte("ping"),
	})

	if rr.Code != http.StatusBadGateway {
		t.Error("unexpected status, was", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "AccessDenied") || strings.Contains(rr.Body.String(), "arn:") {
		t.Error("response leaked AWS detail:", rr.Body.String())
	}
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("POST", "/", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	testHandler(t, &stubProvider{}).ServeHTTP(rr, r)

	if rr.Code != http.StatusBadRequest {
		t.Error("unexpected status, was", rr.Code)
	}
}

func TestGetOnRelayPathIsRejected(t *testing.T) {
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	testHandler(t, &stubProvider{}).ServeHTTP(rr, r)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Error("unexpected status, was", rr.Code)
	}
}

func TestCORSHeadersPresent(t *testing.T) {
	defer leaktest.Check(t)()

	rr := postEnvelope(t, testHandler(t, &stubProvider{}), &relay.Envelope{
		Origin:  "node1.example.ts.net",
		Role:    "remote/deploy",
		Payload: []byte("ping"),
	})

	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected wildcard allow-origin")
	}
	if rr.Header().Get("Access-Control-Allow-Methods") != "POST" {
		t.Error("expected POST-only allow-methods")
	}
}

func TestOptionsShortCircuits(t *testing.T) {
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("OPTIONS", "/", nil)
	rr := httptest.NewRecorder()
	testHandler(t, &stubProvider{}).ServeHTTP(rr, r)

	if rr.Code != http.StatusNoContent {
		t.Error("unexpected status, was", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected wildcard allow-origin")
	}
}

func TestPing(t *testing.T) {
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("GET", "/ping", nil)
	rr := httptest.NewRecorder()
	testHandler(t, &stubProvider{}).ServeHTTP(rr, r)

	if rr.Code != http.StatusOK {
		t.Error("unexpected status, was", rr.Code)
	}
	if rr.Body.String() != "pong" {
		t.Error("unexpected body, was", rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	testHandler(t, &stubProvider{}).ServeHTTP(rr, r)

	if rr.Code != http.StatusOK {
		t.Error("unexpected status, was", rr.Code)
	}
}

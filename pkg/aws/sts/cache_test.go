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
package sts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubGateway struct {
	issueCount    int32
	requestedARN  string
	expiry        time.Duration
	err           error
	issueDuration time.Duration
}

func (s *stubGateway) Issue(ctx context.Context, roleARN, sessionName string, validity time.Duration) (*Credentials, error) {
	atomic.AddInt32(&s.issueCount, 1)
	s.requestedARN = roleARN
	if s.issueDuration > 0 {
		time.Sleep(s.issueDuration)
	}
	if s.err != nil {
		return nil, s.err
	}

	expiry := s.expiry
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	return NewCredentials("A1", "S1", "T1", time.Now().Add(expiry)), nil
}

func (s *stubGateway) issued() int {
	return int(atomic.LoadInt32(&s.issueCount))
}

func testRole() *ResolvedRole {
	return &ResolvedRole{Name: "remote/deploy", ARN: "arn:aws:iam::123456789012:role/remote/deploy"}
}

func TestRequestsCredentialsFromGatewayWithEmptyCache(t *testing.T) {
	gateway := &stubGateway{}
	cache := DefaultCache(gateway, "session", DefaultSessionValidity, DefaultSafetyMargin)
	ctx := context.Background()

	credentials, err := cache.CredentialsForRole(ctx, testRole())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if credentials.AccessKeyId != "A1" {
		t.Error("unexpected access key, was", credentials.AccessKeyId)
	}
	if gateway.requestedARN != "arn:aws:iam::123456789012:role/remote/deploy" {
		t.Error("unexpected arn, was:", gateway.requestedARN)
	}
	if testutil.ToFloat64(cacheSize) != 1 {
		t.Error("expected cached credential, size was", testutil.ToFloat64(cacheSize))
	}

	cache.CredentialsForRole(ctx, testRole())
	if gateway.issued() != 1 {
		t.Error("expected credentials to be cached, issue count was", gateway.issued())
	}
}

func TestConcurrentRequestsShareOneExchange(t *testing.T) {
	gateway := &stubGateway{issueDuration: 20 * time.Millisecond}
	cache := DefaultCache(gateway, "session", DefaultSessionValidity, DefaultSafetyMargin)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			credentials, err := cache.CredentialsForRole(ctx, testRole())
			if err != nil {
				t.Error("unexpected error:", err)
				return
			}
			if credentials.AccessKeyId != "A1" {
				t.Error("unexpected access key, was", credentials.AccessKeyId)
			}
		}()
	}
	wg.Wait()

	if gateway.issued() != 1 {
		t.Error("expected a single exchange, was", gateway.issued())
	}
}

func TestReissuesInsideSafetyMargin(t *testing.T) {
	gateway := &stubGateway{expiry: 30 * time.Second}
	cache := DefaultCache(gateway, "session", DefaultSessionValidity, time.Minute)
	ctx := context.Background()

	cache.CredentialsForRole(ctx, testRole())
	cache.CredentialsForRole(ctx, testRole())

	if gateway.issued() != 2 {
		t.Error("expected near-expiry credentials to be reissued, issue count was", gateway.issued())
	}
}

func TestIssueErrorIsNotCached(t *testing.T) {
	gateway := &stubGateway{err: errors.New("access denied")}
	cache := DefaultCache(gateway, "session", DefaultSessionValidity, DefaultSafetyMargin)
	ctx := context.Background()

	if _, err := cache.CredentialsForRole(ctx, testRole()); err == nil {
		t.Fatal("expected error")
	}
	if testutil.ToFloat64(cacheSize) != 0 {
		t.Error("expected failed entry to be evicted, size was", testutil.ToFloat64(cacheSize))
	}

	gateway.err = nil
	credentials, err := cache.CredentialsForRole(ctx, testRole())
	if err != nil {
		t.Fatal("expected later attempt to reach the gateway, was", err)
	}
	if credentials.AccessKeyId != "A1" {
		t.Error("unexpected access key, was", credentials.AccessKeyId)
	}
	if gateway.issued() != 2 {
		t.Error("unexpected issue count, was", gateway.issued())
	}
}

func TestCallerCancellationLeavesEntryUsable(t *testing.T) {
	gateway := &stubGateway{issueDuration: 50 * time.Millisecond}
	cache := DefaultCache(gateway, "session", DefaultSessionValidity, DefaultSafetyMargin)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := cache.CredentialsForRole(ctx, testRole()); err != context.DeadlineExceeded {
		t.Error("expected deadline exceeded, was", err)
	}

	// the exchange keeps running; a later caller reuses its result
	credentials, err := cache.CredentialsForRole(context.Background(), testRole())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if credentials.AccessKeyId != "A1" {
		t.Error("unexpected access key, was", credentials.AccessKeyId)
	}
	if gateway.issued() != 1 {
		t.Error("expected a single exchange, was", gateway.issued())
	}
}

func TestDistinctRolesIssueIndependently(t *testing.T) {
	gateway := &stubGateway{}
	cache := DefaultCache(gateway, "session", DefaultSessionValidity, DefaultSafetyMargin)
	ctx := context.Background()

	cache.CredentialsForRole(ctx, testRole())
	cache.CredentialsForRole(ctx, &ResolvedRole{Name: "remote/reader", ARN: "arn:aws:iam::123456789012:role/remote/reader"})

	if gateway.issued() != 2 {
		t.Error("expected one exchange per role, was", gateway.issued())
	}
}

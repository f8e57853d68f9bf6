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

// Package testutil holds stub collaborators shared by package tests.
package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/post2post/relay/pkg/aws/sts"
)

// StubGateway counts AssumeRole exchanges instead of performing them.
type StubGateway struct {
	issueCount int32

	// Err, when set, fails every exchange.
	Err error
	// Expiry overrides the issued credentials' validity window.
	Expiry time.Duration
}

func (s *StubGateway) Issue(ctx context.Context, roleARN, sessionName string, validity time.Duration) (*sts.Credentials, error) {
	atomic.AddInt32(&s.issueCount, 1)
	if s.Err != nil {
		return nil, s.Err
	}

	expiry := s.Expiry
	if expiry == 0 {
		expiry = validity
	}
	return sts.NewCredentials("stub-access-key", "stub-secret-key", "stub-token", time.Now().Add(expiry)), nil
}

// Issued returns how many exchanges have been requested.
func (s *StubGateway) Issued() int {
	return int(atomic.LoadInt32(&s.issueCount))
}

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
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/post2post/relay/pkg/aws/sts"
)

const maxPeerResponseBytes = 1 << 20

// PeerDispatcher forwards the payload to another post2post node. Peer
// URLs are IAM-protected Function URLs, so the request is SigV4-signed
// for the lambda service with the brokered credentials only.
type PeerDispatcher struct {
	endpoint string
	region   string
	timeout  time.Duration
	client   *http.Client
}

func NewPeerDispatcher(endpoint, region string, timeout time.Duration) *PeerDispatcher {
	if timeout == 0 {
		timeout = DefaultDispatchTimeout
	}
	return &PeerDispatcher{
		endpoint: endpoint,
		region:   region,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

func (d *PeerDispatcher) Dispatch(ctx context.Context, creds *sts.Credentials, payload []byte) ([]byte, error) {
	timer := prometheus.NewTimer(dispatchTimer)
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequest("POST", d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error building peer request: %s", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	signer := v4.NewSigner(credentials.NewStaticCredentials(creds.AccessKeyId, creds.SecretAccessKey, creds.SessionToken))
	if _, err := signer.Sign(req, bytes.NewReader(payload), "lambda", d.region, time.Now()); err != nil {
		return nil, fmt.Errorf("error signing peer request: %s", err.Error())
	}

	resp, err := d.client.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrDispatchTimeout
		}
		return nil, fmt.Errorf("error forwarding to peer: %s", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPeerResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading peer response: %s", err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("peer returned status %d", resp.StatusCode)
	}

	return body, nil
}

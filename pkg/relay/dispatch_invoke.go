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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/post2post/relay/pkg/aws/sts"
)

// InvokeDispatcher performs the downstream AWS action directly: it
// invokes a named Lambda function with the payload. The client session
// is built per call from the brokered static credentials so the
// execution role's credentials can never leak into the invocation.
type InvokeDispatcher struct {
	functionName string
	region       string
	timeout      time.Duration
}

func NewInvokeDispatcher(functionName, region string, timeout time.Duration) *InvokeDispatcher {
	if timeout == 0 {
		timeout = DefaultDispatchTimeout
	}
	return &InvokeDispatcher{functionName: functionName, region: region, timeout: timeout}
}

func (d *InvokeDispatcher) Dispatch(ctx context.Context, creds *sts.Credentials, payload []byte) ([]byte, error) {
	timer := prometheus.NewTimer(dispatchTimer)
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	config := aws.NewConfig().
		WithRegion(d.region).
		WithCredentials(credentials.NewStaticCredentials(creds.AccessKeyId, creds.SecretAccessKey, creds.SessionToken))
	svc := lambda.New(session.Must(session.NewSession(config)))

	out, err := svc.InvokeWithContext(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(d.functionName),
		Payload:      payload,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrDispatchTimeout
		}
		return nil, fmt.Errorf("error invoking function: %s", err.Error())
	}

	if out.FunctionError != nil {
		return nil, fmt.Errorf("function returned error: %s", *out.FunctionError)
	}

	return out.Payload, nil
}

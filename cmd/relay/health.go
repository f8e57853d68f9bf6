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
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"
)

type healthCommand struct {
	logOptions

	serverAddress string
	timeout       time.Duration
}

func (cmd *healthCommand) Bind(parser parser) {
	cmd.logOptions.bind(parser)

	parser.Flag("server-address", "Address of the relay's HTTP endpoint").Default("http://localhost:8080").StringVar(&cmd.serverAddress)
	parser.Flag("timeout", "Timeout for health check").Default("1s").DurationVar(&cmd.timeout)
}

func (cmd *healthCommand) Run() {
	cmd.configureLogger()

	ctx, cancel := context.WithTimeout(context.Background(), cmd.timeout)
	defer cancel()

	client := &http.Client{}
	op := func() error {
		req, err := http.NewRequest("GET", fmt.Sprintf("%s/health", cmd.serverAddress), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			log.Warnf("error checking health: %s", err.Error())
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			log.Warnf("unhealthy: status %d", resp.StatusCode)
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		log.Infof("healthy: %s", string(body))
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(100*time.Millisecond), ctx))
	if err != nil {
		log.Fatalf("error retrieving health: %s", err.Error())
	}
}

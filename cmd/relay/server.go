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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/post2post/relay/pkg/aws/sts"
	khttp "github.com/post2post/relay/pkg/http"
	"github.com/post2post/relay/pkg/relay"
	"github.com/post2post/relay/pkg/tailnet"
)

type serverCommand struct {
	logOptions
	telemetryOptions

	listenAddress  string
	envFile        string
	tailnetDomain  string
	matchMode      string
	proofSecret    string
	accountID      string
	roleBaseARN    string
	region         string
	sessionName    string
	sessionTTL     time.Duration
	safetyMargin   time.Duration
	dispatchMode   string
	peerURL        string
	functionName   string
	dispatchBudget time.Duration
	requestBudget  time.Duration
}

func (cmd *serverCommand) Bind(parser parser) {
	cmd.logOptions.bind(parser)
	cmd.telemetryOptions.bind(parser)

	parser.Flag("bind", "HTTP bind address").Default("localhost:8080").StringVar(&cmd.listenAddress)
	parser.Flag("env-file", "Optional .env file loaded before reading the environment").Default("").StringVar(&cmd.envFile)
	parser.Flag("tailnet-domain", "Tailnet domain trusted as origin (or TAILNET_DOMAIN)").Default("").StringVar(&cmd.tailnetDomain)
	parser.Flag("tailnet-match", "Origin match mode: suffix or exact").Default("suffix").EnumVar(&cmd.matchMode, "suffix", "exact")
	parser.Flag("proof-secret", "Shared secret requiring signed origin proofs (or PROOF_SECRET)").Default("").StringVar(&cmd.proofSecret)
	parser.Flag("account-id", "AWS account owning the scoped roles (or AWS_ACCOUNT_ID)").Default("").StringVar(&cmd.accountID)
	parser.Flag("role-base-arn", "Base ARN for roles. e.g. arn:aws:iam::123456789012:role/").Default("").StringVar(&cmd.roleBaseARN)
	parser.Flag("region", "AWS region for STS and dispatch").Default("").StringVar(&cmd.region)
	parser.Flag("session", "Session name used when creating STS tokens").Default("post2post").StringVar(&cmd.sessionName)
	parser.Flag("session-duration", "Requested validity for STS tokens").Default("15m").DurationVar(&cmd.sessionTTL)
	parser.Flag("session-refresh", "How close to expiry cached tokens are reissued").Default("60s").DurationVar(&cmd.safetyMargin)
	parser.Flag("dispatch", "Dispatch mode: peer or invoke").Default("peer").EnumVar(&cmd.dispatchMode, "peer", "invoke")
	parser.Flag("peer-url", "Peer post2post node URL for peer dispatch").Default("").StringVar(&cmd.peerURL)
	parser.Flag("function", "Lambda function name for invoke dispatch").Default("").StringVar(&cmd.functionName)
	parser.Flag("dispatch-timeout", "Budget for the downstream call").Default("25s").DurationVar(&cmd.dispatchBudget)
	parser.Flag("request-timeout", "Budget for an entire request; must sit under the platform's 30s ceiling").Default("28s").DurationVar(&cmd.requestBudget)
}

// flags win over the environment; the environment wins over the env file
func (cmd *serverCommand) fromEnvironment() {
	if cmd.envFile != "" {
		if err := godotenv.Load(cmd.envFile); err != nil {
			log.Fatalf("error loading env file: %s", err.Error())
		}
	}

	if cmd.tailnetDomain == "" {
		cmd.tailnetDomain = os.Getenv("TAILNET_DOMAIN")
	}
	if cmd.proofSecret == "" {
		cmd.proofSecret = os.Getenv("PROOF_SECRET")
	}
	if cmd.accountID == "" {
		cmd.accountID = os.Getenv("AWS_ACCOUNT_ID")
	}
	if cmd.region == "" {
		cmd.region = os.Getenv("AWS_REGION")
	}
}

func (cmd *serverCommand) resolver() (*sts.Resolver, error) {
	if cmd.roleBaseARN != "" {
		return sts.NewResolver(cmd.roleBaseARN)
	}
	return sts.NewResolverForAccount(cmd.accountID)
}

func (cmd *serverCommand) dispatcher() relay.Dispatcher {
	switch cmd.dispatchMode {
	case "invoke":
		if cmd.functionName == "" {
			log.Fatal("invoke dispatch requires --function")
		}
		return relay.NewInvokeDispatcher(cmd.functionName, cmd.region, cmd.dispatchBudget)
	default:
		if cmd.peerURL == "" {
			log.Fatal("peer dispatch requires --peer-url")
		}
		return relay.NewPeerDispatcher(cmd.peerURL, cmd.region, cmd.dispatchBudget)
	}
}

func (cmd *serverCommand) Run() {
	cmd.configureLogger()
	cmd.fromEnvironment()

	// the trust anchor: refusing to start beats serving unauthenticated
	if cmd.tailnetDomain == "" {
		log.Fatal("TAILNET_DOMAIN not set and --tailnet-domain not specified")
	}
	if cmd.accountID == "" && cmd.roleBaseARN == "" {
		log.Fatal("neither AWS_ACCOUNT_ID nor --role-base-arn specified")
	}

	var secret []byte
	if cmd.proofSecret != "" {
		secret = []byte(cmd.proofSecret)
	}
	validator, err := tailnet.NewValidator(cmd.tailnetDomain, tailnet.MatchMode(cmd.matchMode), secret)
	if err != nil {
		log.Fatalf("error creating validator: %s", err.Error())
	}

	resolver, err := cmd.resolver()
	if err != nil {
		log.Fatalf("error creating resolver: %s", err.Error())
	}

	cache := sts.DefaultCache(sts.DefaultGateway(cmd.region), cmd.sessionName, cmd.sessionTTL, cmd.safetyMargin)
	r := relay.New(validator, resolver, cache, cmd.dispatcher())

	config := khttp.NewConfig(cmd.listenAddress)
	config.TailnetDomain = cmd.tailnetDomain
	config.MaxElapsedTime = cmd.requestBudget
	server := khttp.NewWebServer(config, r)

	ctx, cancel := context.WithCancel(context.Background())
	cmd.telemetryOptions.start(ctx)

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopChan
		log.Infof("stopping server")
		server.Stop(context.Background())
		cancel()
	}()

	log.Infof("starting server for tailnet domain %s", cmd.tailnetDomain)
	if err := server.Serve(); err != nil {
		log.Infof("server stopped: %s", err.Error())
	}

	log.Infoln("stopped")
}

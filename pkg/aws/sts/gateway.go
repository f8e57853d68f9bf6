package sts

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSTSGateway calls the real STS AssumeRole API using the relay's
// execution-role credentials. Those credentials are used for the
// exchange only; the issued credentials are what flows downstream.
type DefaultSTSGateway struct {
	session *session.Session
}

func DefaultGateway(region string) *DefaultSTSGateway {
	config := aws.NewConfig()
	if region != "" {
		config = config.WithRegion(region)
	}
	return &DefaultSTSGateway{session: session.Must(session.NewSession(config))}
}

func (g *DefaultSTSGateway) Issue(ctx context.Context, roleARN, sessionName string, validity time.Duration) (*Credentials, error) {
	timer := prometheus.NewTimer(assumeRole)
	defer timer.ObserveDuration()

	assumeRoleExecuting.Inc()
	defer assumeRoleExecuting.Dec()

	svc := sts.New(g.session)
	in := &sts.AssumeRoleInput{
		DurationSeconds: aws.Int64(int64(validity.Seconds())),
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(sessionName),
	}
	resp, err := svc.AssumeRoleWithContext(ctx, in)
	if err != nil {
		return nil, err
	}

	return NewCredentials(*resp.Credentials.AccessKeyId, *resp.Credentials.SecretAccessKey, *resp.Credentials.SessionToken, *resp.Credentials.Expiration), nil
}

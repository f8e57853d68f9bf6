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

	log "github.com/sirupsen/logrus"

	"github.com/post2post/relay/pkg/aws/sts"
	"github.com/post2post/relay/pkg/tailnet"
)

// Validator authenticates an envelope's claimed origin.
type Validator interface {
	Validate(origin, proof string) (*tailnet.Identity, error)
}

// Relay drives an envelope through validate, resolve, acquire and
// dispatch. All collaborators are injected; the credentials cache is
// the only one holding cross-request state.
type Relay struct {
	validator  Validator
	resolver   sts.RoleResolver
	provider   sts.CredentialsProvider
	dispatcher Dispatcher
}

func New(validator Validator, resolver sts.RoleResolver, provider sts.CredentialsProvider, dispatcher Dispatcher) *Relay {
	return &Relay{
		validator:  validator,
		resolver:   resolver,
		provider:   provider,
		dispatcher: dispatcher,
	}
}

// Handle runs one envelope to a terminal result. Stages run strictly in
// order; a failed stage short-circuits everything after it, so an
// untrusted origin never reaches the resolver, let alone STS.
func (r *Relay) Handle(ctx context.Context, envelope *Envelope) *Result {
	logger := log.WithField("envelope.origin", envelope.Origin)

	identity, err := r.validator.Validate(envelope.Origin, envelope.Proof)
	if err != nil {
		kind := KindUntrustedOrigin
		if errors.Is(err, tailnet.ErrMalformedEnvelope) {
			kind = KindMalformedEnvelope
		}
		logger.Warnf("rejected envelope: %s", err.Error())
		return r.fail(StateValidated, kind)
	}
	logger = logger.WithField("identity.node", identity.Node)

	role, err := r.resolver.Resolve(envelope.Role)
	if err != nil {
		// out-of-scope hints from a validated node are an attack
		// signal; log the event, not the hint or a resolved ARN
		logger.Warnf("role hint outside permitted scope")
		return r.fail(StateRoleResolved, KindOutOfScope)
	}

	credentials, err := r.provider.CredentialsForRole(ctx, role)
	if err != nil {
		kind := KindAssumeRoleDenied
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindCredentialTimeout
		}
		return r.fail(StateCredentialAcquired, kind)
	}

	body, err := r.dispatcher.Dispatch(ctx, credentials, envelope.Payload)
	if err != nil {
		kind := KindDispatchFailed
		if errors.Is(err, ErrDispatchTimeout) || errors.Is(err, context.DeadlineExceeded) {
			kind = KindDispatchTimeout
		}
		logger.Errorf("error dispatching payload: %s", err.Error())
		return r.fail(StateDispatched, kind)
	}

	logger.WithField("role.name", role.Name).Infof("relayed envelope")
	completedTotal.Inc()
	return completed(body)
}

func (r *Relay) fail(at State, kind Kind) *Result {
	failuresTotal.WithLabelValues(string(kind)).Inc()
	return failed(at, kind)
}

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

// Package tailnet authenticates the claimed origin of an inbound envelope
// against the tailnet domain the relay trusts. The deployed URL is public,
// so validation is application-level: a string claim alone is accepted only
// in the weakest configuration, and configuring a proof secret requires
// every request to carry a signed proof bound to its origin.
package tailnet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUntrustedOrigin is returned when the claimed origin doesn't
	// belong to the configured tailnet domain, or its proof fails.
	ErrUntrustedOrigin = errors.New("untrusted origin")
	// ErrMalformedEnvelope is returned when required identity fields
	// are missing from the envelope.
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// MatchMode controls how claimed origins are compared to the domain.
type MatchMode string

const (
	// MatchSuffix admits any hostname underneath the domain.
	MatchSuffix MatchMode = "suffix"
	// MatchExact admits only hostnames of the form <node>.<domain>,
	// with no further nesting.
	MatchExact MatchMode = "exact"
)

// Identity is a caller whose tailnet origin has been validated. Only the
// Validator constructs these.
type Identity struct {
	Node   string
	Domain string
}

type Validator struct {
	domain string
	mode   MatchMode
	secret []byte
}

// NewValidator creates a Validator trusting the given tailnet domain.
// An empty domain is a configuration error: the domain is the trust
// anchor and must be present before the relay serves anything. When
// proofSecret is non-empty every envelope must carry a proof token
// signed with it.
func NewValidator(domain string, mode MatchMode, proofSecret []byte) (*Validator, error) {
	if domain == "" {
		return nil, fmt.Errorf("tailnet domain must not be empty")
	}
	if mode != MatchSuffix && mode != MatchExact {
		return nil, fmt.Errorf("unrecognised match mode: %s", mode)
	}

	return &Validator{domain: strings.ToLower(domain), mode: mode, secret: proofSecret}, nil
}

// Validate checks the claimed origin, and its proof when one is required.
// It is pure: no network calls, same result for the same envelope.
func (v *Validator) Validate(origin, proof string) (*Identity, error) {
	if origin == "" {
		return nil, ErrMalformedEnvelope
	}

	origin = strings.ToLower(strings.TrimSuffix(origin, "."))

	node, ok := v.matchNode(origin)
	if !ok {
		return nil, ErrUntrustedOrigin
	}

	if len(v.secret) > 0 {
		if proof == "" {
			return nil, ErrMalformedEnvelope
		}
		if err := v.checkProof(origin, proof); err != nil {
			return nil, ErrUntrustedOrigin
		}
	}

	return &Identity{Node: node, Domain: v.domain}, nil
}

func (v *Validator) matchNode(origin string) (string, bool) {
	if !strings.HasSuffix(origin, "."+v.domain) {
		return "", false
	}

	node := strings.TrimSuffix(origin, "."+v.domain)
	if node == "" {
		return "", false
	}

	if v.mode == MatchExact && strings.Contains(node, ".") {
		return "", false
	}

	return node, true
}

// checkProof verifies a JWT signed with the shared secret whose subject
// is the claimed origin. Expiry is enforced by the parser.
func (v *Validator) checkProof(origin, proof string) error {
	token, err := jwt.ParseWithClaims(proof, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}

	claims := token.Claims.(*jwt.RegisteredClaims)
	if strings.ToLower(claims.Subject) != origin {
		return fmt.Errorf("proof subject doesn't match origin")
	}

	return nil
}

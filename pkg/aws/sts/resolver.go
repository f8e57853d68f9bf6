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
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RoleScope is the IAM path prefix every resolved role must live under.
// The relay's execution role policy carries the same restriction; the
// resolver enforces it here as well rather than relying on IAM alone.
const RoleScope = "remote/"

// ErrOutOfScope is returned for any hint that would resolve outside the
// scoped role path.
var ErrOutOfScope = errors.New("role out of scope")

var scopedARN = regexp.MustCompile(`^arn:aws:iam::\d{12}:role/remote/.+$`)

// ResolvedRole is a role hint resolved against the deploy-time base ARN.
type ResolvedRole struct {
	// Name is the role name including its path, e.g. remote/deploy.
	Name string
	// ARN is the absolute role ARN.
	ARN string
}

func (r *ResolvedRole) Equals(other *ResolvedRole) bool {
	return other != nil && r.ARN == other.ARN
}

// Resolver builds scoped role ARNs from caller-supplied hints. The base
// ARN is fixed when the relay is deployed; hints are untrusted input.
type Resolver struct {
	baseARN string
}

// NewResolver creates a resolver for the given base ARN, which must be
// of the form arn:aws:iam::<account-id>:role/.
func NewResolver(baseARN string) (*Resolver, error) {
	if !regexp.MustCompile(`^arn:aws:iam::\d{12}:role/$`).MatchString(baseARN) {
		return nil, fmt.Errorf("invalid base arn: must be arn:aws:iam::<account-id>:role/")
	}
	return &Resolver{baseARN: baseARN}, nil
}

// NewResolverForAccount creates a resolver from a bare account id.
func NewResolverForAccount(accountID string) (*Resolver, error) {
	return NewResolver(fmt.Sprintf("arn:aws:iam::%s:role/", accountID))
}

// Resolve converts a hint into a role ARN under the remote/ scope. Empty
// hints, path traversal and anything resolving outside the scope fail
// with ErrOutOfScope.
func (r *Resolver) Resolve(hint string) (*ResolvedRole, error) {
	name := strings.TrimPrefix(hint, "/")
	if name == "" {
		return nil, ErrOutOfScope
	}

	if strings.HasPrefix(name, "arn:") {
		if !strings.HasPrefix(name, r.baseARN+RoleScope) {
			return nil, ErrOutOfScope
		}
		name = strings.TrimPrefix(name, r.baseARN)
	}

	if !validScopedName(name) {
		return nil, ErrOutOfScope
	}

	arn := r.baseARN + name
	if !scopedARN.MatchString(arn) {
		return nil, ErrOutOfScope
	}

	return &ResolvedRole{Name: name, ARN: arn}, nil
}

// validScopedName requires the remote/ prefix, a non-empty role name and
// clean path segments. Traversal or empty segments would let a hint
// escape the scope before the regexp sees a well-formed ARN.
func validScopedName(name string) bool {
	if !strings.HasPrefix(name, RoleScope) {
		return false
	}
	if strings.TrimPrefix(name, RoleScope) == "" {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}

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
	"time"
)

// CredentialsProvider returns credentials for a resolved role.
type CredentialsProvider interface {
	CredentialsForRole(ctx context.Context, role *ResolvedRole) (*Credentials, error)
}

// RoleResolver resolves caller-supplied role hints into scoped ARNs.
type RoleResolver interface {
	Resolve(hint string) (*ResolvedRole, error)
}

// STSGateway performs the AssumeRole exchange.
type STSGateway interface {
	Issue(ctx context.Context, roleARN, sessionName string, validity time.Duration) (*Credentials, error)
}

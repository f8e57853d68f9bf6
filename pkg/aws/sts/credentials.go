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

// Package sts resolves caller role hints into scoped role ARNs and
// exchanges them for short-lived credentials via AssumeRole. Credentials
// live only in process memory and never appear in logs or responses.
package sts

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Credentials are the product of an AssumeRole exchange. They are owned
// by the cache and handed to dispatchers by reference only.
type Credentials struct {
	AccessKeyId     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

func NewCredentials(accessKey, secretKey, token string, expiry time.Time) *Credentials {
	return &Credentials{
		AccessKeyId:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    token,
		Expiration:      expiry,
	}
}

// ExpiresWithin reports whether the credentials expire inside the given
// window from now. Used to avoid handing out a credential that would
// expire mid-use.
func (c *Credentials) ExpiresWithin(window time.Duration) bool {
	return time.Now().Add(window).After(c.Expiration)
}

// CredentialsFields returns structured log fields for issued credentials.
// Deliberately omits all key material.
func CredentialsFields(credentials *Credentials, role *ResolvedRole) log.Fields {
	return log.Fields{
		"credentials.expiration": credentials.Expiration.Format(time.RFC3339),
		"credentials.role":       role.Name,
	}
}

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
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/post2post/relay/pkg/future"
)

const (
	DefaultPurgeInterval   = 1 * time.Minute
	DefaultSessionValidity = 15 * time.Minute
	// DefaultSafetyMargin is how close to expiry a cached credential may
	// get before the cache reissues instead of returning it.
	DefaultSafetyMargin = 60 * time.Second

	// exchangeTimeout bounds the AssumeRole call itself. The exchange
	// runs on its own context: callers abandoning their requests must
	// not cancel an exchange other callers are waiting on.
	exchangeTimeout = 10 * time.Second
)

// credentialsCache caches issued credentials per role ARN. Entries hold
// futures so a miss triggers exactly one AssumeRole per key; concurrent
// callers for the same key wait on the same exchange and share its
// result or its error. The mutex guards only lookup-and-install, never
// the exchange itself, so unrelated roles are never serialised.
type credentialsCache struct {
	cache        *cache.Cache
	gateway      STSGateway
	sessionName  string
	validity     time.Duration
	safetyMargin time.Duration
	mutex        sync.Mutex
}

func DefaultCache(gateway STSGateway, sessionName string, validity, safetyMargin time.Duration) *credentialsCache {
	c := &credentialsCache{
		gateway:      gateway,
		sessionName:  "relay-" + sessionName,
		validity:     validity,
		safetyMargin: safetyMargin,
	}
	c.cache = cache.New(validity, DefaultPurgeInterval)

	return c
}

// CredentialsForRole returns cached credentials for the role while they
// remain fresh, issuing new ones on a miss or inside the safety margin.
// A failed exchange removes its entry: errors are never cached, so a
// later attempt reaches the gateway again.
func (c *credentialsCache) CredentialsForRole(ctx context.Context, role *ResolvedRole) (*Credentials, error) {
	logger := log.WithField("credentials.role", role.Name)

	for {
		c.mutex.Lock()
		item, found := c.cache.Get(role.ARN)
		if !found {
			f := future.New(c.issuer(role, logger))
			c.cache.Set(role.ARN, f, cache.DefaultExpiration)
			cacheSize.Set(float64(c.cache.ItemCount()))
			c.mutex.Unlock()

			cacheMiss.Inc()
			val, err := f.Get(ctx)
			if err != nil {
				// only evict when the exchange itself failed;
				// our context expiring says nothing about the
				// entry, which may still complete for others
				if f.Resolved() {
					c.remove(role.ARN, f)
				}
				return nil, err
			}
			return val.(*Credentials), nil
		}
		c.mutex.Unlock()

		f := item.(*future.Future)
		val, err := f.Get(ctx)
		if err != nil {
			if f.Resolved() {
				c.remove(role.ARN, f)
			}
			return nil, err
		}

		credentials := val.(*Credentials)
		if credentials.ExpiresWithin(c.safetyMargin) {
			logger.Debugf("cached credentials inside safety margin, reissuing")
			c.remove(role.ARN, f)
			continue
		}

		cacheHit.Inc()
		return credentials, nil
	}
}

func (c *credentialsCache) issuer(role *ResolvedRole, logger *log.Entry) future.Fn {
	return func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), exchangeTimeout)
		defer cancel()

		credentials, err := c.gateway.Issue(ctx, role.ARN, c.sessionName, c.validity)
		if err != nil {
			errorIssuing.Inc()
			logger.Errorf("error requesting credentials: %s", err.Error())
			return nil, err
		}

		log.WithFields(CredentialsFields(credentials, role)).Infof("requested new credentials")
		return credentials, nil
	}
}

// remove deletes the entry only while it still holds f, so a newer
// future installed by another caller is left alone.
func (c *credentialsCache) remove(key string, f *future.Future) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if item, found := c.cache.Get(key); found && item.(*future.Future) == f {
		c.cache.Delete(key)
		cacheSize.Set(float64(c.cache.ItemCount()))
	}
}

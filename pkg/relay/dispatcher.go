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
	"time"

	"github.com/post2post/relay/pkg/aws/sts"
)

// DefaultDispatchTimeout leaves margin under the platform's 30 second
// invocation ceiling for validation and credential acquisition.
const DefaultDispatchTimeout = 25 * time.Second

// Dispatcher performs the downstream action with the brokered
// credentials. Implementations must use only those credentials, never
// the relay's own execution role, and must not retry: idempotency is a
// property of the downstream action and retries belong to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, credentials *sts.Credentials, payload []byte) ([]byte, error)
}

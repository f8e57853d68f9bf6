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

// Package relay ties the validator, resolver, credentials broker and
// dispatcher together: one envelope in, one result out.
package relay

// Envelope is the single message shape the relay accepts. It is created
// per request, never mutated, and discarded once its result is written.
type Envelope struct {
	// Origin is the caller's claimed tailnet hostname.
	Origin string `json:"origin"`
	// Role is the caller-supplied role hint, e.g. remote/deploy.
	Role string `json:"role"`
	// Payload is the opaque body relayed downstream. Base64 on the wire.
	Payload []byte `json:"payload"`
	// Proof optionally carries a signed token binding the request to
	// its origin. Required when the relay is configured with a secret.
	Proof string `json:"proof,omitempty"`
}

// State names the stages a request moves through. Completed and Failed
// are terminal; a failure records the stage it happened in.
type State string

const (
	StateReceived           State = "Received"
	StateValidated          State = "Validated"
	StateRoleResolved       State = "RoleResolved"
	StateCredentialAcquired State = "CredentialAcquired"
	StateDispatched         State = "Dispatched"
	StateCompleted          State = "Completed"
	StateFailed             State = "Failed"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the terminal outcome for one envelope.
type Result struct {
	Status Status `json:"status"`
	// Body is the downstream response for successful dispatches.
	Body []byte `json:"body,omitempty"`
	// ErrorKind classifies failures. Never carries AWS error detail.
	ErrorKind Kind `json:"error,omitempty"`
	// FailedAt is the stage a failed request was in, empty on success.
	FailedAt State `json:"-"`
}

func completed(body []byte) *Result {
	return &Result{Status: StatusSuccess, Body: body}
}

func failed(at State, kind Kind) *Result {
	return &Result{Status: StatusFailure, ErrorKind: kind, FailedAt: at}
}

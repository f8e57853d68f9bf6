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

// Package future runs a computation once and lets any number of callers
// wait on its result. The credentials cache uses it to ensure a single
// in-flight exchange per role.
package future

import (
	"context"
)

type Future struct {
	val  interface{}
	err  error
	done chan struct{}
}

type Fn func() (interface{}, error)

// Get blocks until the computation finishes or the caller's context is
// done, whichever happens first. A context error here says nothing about
// the computation itself, which keeps running for other waiters.
func (f *Future) Get(ctx context.Context) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.val, f.err
	}
}

// Resolved reports whether the computation has finished.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func New(fn Fn) *Future {
	future := &Future{
		done: make(chan struct{}),
	}
	go func() {
		future.val, future.err = fn()
		close(future.done)
	}()
	return future
}

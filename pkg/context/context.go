// Copyright 2024 The Fuchsia Authors.
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

// Package context defines the Context type, which carries request-scoped
// values and a logger across API boundaries. It is analogous to the standard
// library's context package, with logging methods attached so that call sites
// can emit contextual log statements without plumbing a logger separately.
package context

import (
	stdcontext "context"

	"github.com/vsrinivas/fuchsia-sub313/pkg/log"
)

// Context represents a thread of execution. Blocking operations and
// operations that want to attribute log output take one as their first
// argument.
type Context interface {
	log.Logger
	stdcontext.Context
}

type logContext struct {
	log.Logger
	stdcontext.Context
}

// Background returns an empty context using the default logger.
func Background() Context {
	return logContext{
		Context: stdcontext.Background(),
		Logger:  log.Log(),
	}
}

// WithCancel returns a copy of parent with a new Done channel, closed when
// the returned cancel function is called or when parent's Done channel is
// closed.
func WithCancel(parent Context) (Context, stdcontext.CancelFunc) {
	ctx, cancel := stdcontext.WithCancel(parent)
	return logContext{
		Context: ctx,
		Logger:  parent,
	}, cancel
}

// WithValue returns a copy of parent in which the value associated with key
// is val.
func WithValue(parent Context, key, val any) Context {
	return &withValue{
		Context: parent,
		key:     key,
		val:     val,
	}
}

type withValue struct {
	Context
	key any
	val any
}

// Value implements Context.Value.
func (ctx *withValue) Value(key any) any {
	if key == ctx.key {
		return ctx.val
	}
	return ctx.Context.Value(key)
}

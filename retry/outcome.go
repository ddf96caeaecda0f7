// Copyright 2025 Poiesic Systems
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


// Package retry provides typed phase outcomes and a bounded retry loop.
//
// A phase returns an Outcome that is either Ok with a value, Retryable with a
// cause, or Fatal with a cause. Run retries Retryable outcomes with exponential
// backoff and stops immediately on Ok or Fatal.
package retry

import "errors"

// Kind classifies an Outcome.
type Kind int

const (
	// KindOk means the attempt produced a value.
	KindOk Kind = iota
	// KindRetryable means the attempt failed but another attempt may succeed.
	KindRetryable
	// KindFatal means the attempt failed and retrying cannot help.
	KindFatal
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of one phase attempt.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: KindOk, Value: v}
}

// Retryable wraps a failure worth another attempt.
func Retryable[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: KindRetryable, Err: err}
}

// Fatal wraps a failure that ends the phase.
func Fatal[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: KindFatal, Err: err}
}

// IsOk reports whether the outcome carries a value.
func (o Outcome[T]) IsOk() bool {
	return o.Kind == KindOk
}

// Unwrap returns the value and a nil error for Ok outcomes, or the zero value
// and the cause otherwise.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.Kind == KindOk {
		return o.Value, nil
	}
	var zero T
	if o.Err == nil {
		return zero, ErrNoCause
	}
	return zero, o.Err
}

// ErrNoCause is returned when a failed outcome carries no error.
var ErrNoCause = errors.New("failed outcome without cause")

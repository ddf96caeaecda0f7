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


package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrEpisodeExists indicates an episode id already has a committed subgraph.
	ErrEpisodeExists = errors.New("episode already committed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidEpisodeID indicates an empty or unusable episode id.
	ErrInvalidEpisodeID = errors.New("invalid episode id")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)

// IsTransient reports whether a storage error is worth one more attempt.
// Timeouts are transient; missing records, closed stores and codec failures
// are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStorageClosed) ||
		errors.Is(err, ErrInvalidEpisodeID) ||
		errors.Is(err, ErrSerializationFailed) ||
		errors.Is(err, ErrTruncatedData) {
		return false
	}
	return true
}

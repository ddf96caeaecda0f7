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


// Package pipeline turns one episode's transcript into a committed knowledge
// subgraph.
//
// A run moves strictly forward through the states
//
//	Parsed -> Structured -> Regrouped -> Extracted -> Resolved -> Committed
//
// or ends in Rejected. Each phase retries internally; the orchestrator never
// re-enters an earlier state. Nothing is visible to graph readers until the
// commit marker is written, and every fatal error deletes whatever the run
// wrote for the episode before it is returned.
//
// Basic usage:
//
//	p, err := pipeline.New(store, provider,
//	    pipeline.WithWorkers(5),
//	    pipeline.WithFailureThreshold(0),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Release()
//
//	result, err := p.ProcessEpisode(ctx, meta, segments)
package pipeline

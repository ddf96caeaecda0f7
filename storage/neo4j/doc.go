// Package neo4j stores episode subgraphs in Neo4j.
//
// Every node carries an episode_id property and every RELATES edge carries
// the same property, so an episode's subgraph is deleted with a single
// DETACH DELETE. Relationships are MERGEd on their key, making re-assertion
// idempotent. The Episode node is deleted first, which hides the episode
// from readers before the rest of its subgraph goes.
package neo4j

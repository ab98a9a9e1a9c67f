/*
Package domain contains the core domain models of the automaton engine.

It defines the stored automation graph (Nodes and Edges), the typed node payloads,
the per-run ExecutionContext and the events emitted while a graph is executed.
This package is kept free of I/O and persistence concerns so that every adapter
(memory, file, redis, http, mcp) can share the same vocabulary.

# Key Entities

  - Graph: an automation definition (ordered nodes + edges).
  - Node: one step; its Data is a Payload selected by the node Type.
  - Edge: a directed connection, optionally tagged with a source handle ("true"/"false").
  - Rule: one clause of a condition node, folded left-to-right with AND/OR.
  - ExecutionContext: the ephemeral state of a single run (target email + variables).
  - Report: the outcome of every traversal started by one execution.
*/
package domain

/*
Package automaton runs message automations designed as graphs in a visual editor.

An automation is a directed graph of typed steps: a start trigger, actions that
send a message, delays, conditional branches on the recipient address, and end
nodes. The engine walks the graph for one recipient at a time, performing each
node's effect and following edges until it reaches an end node or a dead end.

# Concept

Graphs are stored through a ports.GraphRepository (memory, file or Redis) and
messages leave through a ports.MessageSender (SMTP, log or an in-memory outbox).
The engine itself is stateless: every run builds a fresh ExecutionContext that
is discarded once the traversal stops. Failures inside a node (a rejected
message, a malformed date) end that path and are reported through logs, the
returned Report and LifecycleHooks, never as an error from the run.

# Usage

	store := memory.NewStore(graph)
	sender := smtp.New(host, 587, user, password)
	eng := automaton.New(store, sender, automaton.WithLogger(logger))

	// Synchronous: wait for every traversal.
	report, err := eng.Run(ctx, graph.ID, "jane@example.com")

	// Fire-and-forget: returns once the graph is loaded.
	runID, err := eng.Start(ctx, graph.ID, "jane@example.com")
	defer eng.Close(context.Background())

Automation CRUD goes through Service, which the HTTP and MCP adapters share.
*/
package automaton

/*
Package ports defines the driven ports (interfaces) of the automation engine.

These interfaces decouple execution from storage and delivery, so the same
engine runs against memory, file or Redis repositories and any mail transport.

# Key Interfaces

  - GraphStore: read access to automation graphs, used by the engine.
  - GraphRepository: full CRUD over automation graphs.
  - MessageSender: delivers the messages produced by action nodes.
  - DistributedLocker: serializes writes to an automation across instances.
*/
package ports

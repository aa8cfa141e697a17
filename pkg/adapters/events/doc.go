// Package events provides event bus implementations for workflow lifecycle
// events.
//
// Implementations:
//   - memory: in-process fan-out (default, tests)
//   - redis: Redis Streams with consumer groups
package events

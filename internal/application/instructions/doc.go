// Package instructions turns raw instruction maps into canonical
// domain.Instruction values and fingerprints them for the result cache.
//
// Normalization applies an ordered list of idempotent rules and then checks
// that the required fields are present:
//   - assign_id: fresh UUID when id is absent
//   - default_timeout: default timeout (ms) when absent
//   - canonical_action: lower-case, characters outside [a-z0-9_.] become '_'
//   - default_retry_policy: {max_retries: 3, backoff: exponential}
//   - default_dependencies: empty dependency list
//   - created_at: normalization time when absent
package instructions

// Package memory keeps the storage server inside its container memory
// budget.
//
// Uploads are buffered in memory while they are parsed and stored, so a
// burst of 25 MiB photos can push a small container into the OOM killer.
// Two mechanisms guard against that:
//
//   - [ConfigureLimit] sets GOMEMLIMIT from the container limit so the
//     garbage collector works harder before the limit is reached.
//   - [Guard] samples heap usage and refuses new uploads (HTTP 503) while
//     usage is above the critical water mark, re-admitting them once usage
//     falls below the high water mark.
//
// # Environment Variables
//
//   - GOMEMLIMIT: standard Go variable; takes precedence when set
//   - MEMORY_LIMIT: container limit in bytes, typically from the Kubernetes
//     Downward API (resourceFieldRef: limits.memory)
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the heap (default 0.8)
//
// # Metrics
//
// The guard reports through an [Observer]; the Prometheus implementation
// lives in the metrics package.
package memory

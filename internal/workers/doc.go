// Package workers determines worker pool sizes that respect container CPU
// limits. Go 1.19+ sets GOMAXPROCS from cgroup constraints, so sizing from
// GOMAXPROCS (rather than runtime.NumCPU, which reports host CPUs) keeps
// fan-out proportional to what the process can actually use.
//
// Ingestion is a mixed workload (file reads, hashing, image decode, catalog
// writes), so the batch pipeline sizes its pool with ForMixed. Operators can
// override the calculation with the INGEST_WORKERS environment variable.
package workers

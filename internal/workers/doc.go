/*
Package workers sizes concurrency pools from the CPU budget the process
actually has.

Go sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU()
reports host CPUs, so pool sizes are derived from GOMAXPROCS:

	slots := workers.ForMixed(4) // 1.5 per CPU, at most 4

The RECOVERY_WORKERS environment variable pins the count for operators
who want a fixed number of concurrent extractions.
*/
package workers

// Command recoverzip recovers photos from a local zip archive without
// running the server.
//
// It runs the same extraction, repair and thumbnail pipeline as the HTTP
// service, prints a per-entry summary and can write the recovered photos
// to a new zip.
//
// Usage:
//
//	recoverzip [flags] <archive.zip>
//
// Flags:
//
//	-o, --output          write the recovered photos to this zip file
//	-w, --workdir         keep extracted files here instead of a temp dir
//	    --keep            do not delete the working directory on exit
//	-v, --verbose         print the session log and debug output
//	    --scan-limit, --scan-step, --scan-min-size
//	                      tune the repair offset scan
//
// Progress is shown on stderr only when it is a terminal. Interrupting the
// command cancels the session; the summary still reports what was done.
// The exit status is 1 when the archive could not be read at all.
package main

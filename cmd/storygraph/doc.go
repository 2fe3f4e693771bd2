// Command storygraph discovers multicam footage, runs the forensic phases
// against the remote analysis services, reconciles long-running jobs, and
// exports the synchronized timeline as XMEML for the editing application.
//
// Every phase is an explicit command; the registry under data_dir carries the
// state between runs.
package main

// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package supervisor runs the worker as a child process, monitors its
// liveness via a heartbeat file, detects loss of internet
// connectivity, terminates and restarts the child accordingly, and
// reports state changes over a notification sink.
//
// The outer supervisor's own internal services (heartbeat writer,
// connectivity prober, stderr notification digest) run under a
// suture.Supervisor (Tree, in tree.go), since they are ordinary
// goroutines. The worker child itself is a real OS process and is
// managed directly with os/exec by Supervisor (in supervisor.go),
// since an external process cannot implement suture.Service.
package supervisor

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command hooman is an interactive front end for the intent operator.
//
// Usage:
//
//	hooman repl                        # interactive session
//	hooman run at milk --for 1h30m     # translate one line
//	hooman run --answer y rm 3         # pre-answer prompts
//	hooman commands                    # list commands and synonyms
//	hooman journal                     # dump the audit journal
//
// Global flags:
//
//	--registry PATH      registry YAML (env HOOMAN_REGISTRY)
//	--journal-dir PATH   journal directory (env HOOMAN_JOURNAL_DIR)
//	--no-journal         do not record lines
//	--log-level LEVEL    debug, info, warn, error (env HOOMAN_LOG_LEVEL)
//	--trace              print spans to stderr
//
// Exit codes:
//
//	0 - success
//	1 - error, or a line that did not run
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hooman: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// httpsconn opens plain or TLS byte streams to HTTP(S) targets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"httpsconn/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "httpsconn: %v\n", err)
		os.Exit(1)
	}
}

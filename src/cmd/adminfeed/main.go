// FILE: adminfeed/src/cmd/adminfeed/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"adminfeed/src/cmd/adminfeed/commands"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels, a second one forces exit
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		<-sigChan
		fmt.Fprintln(os.Stderr, "Forced exit")
		os.Exit(130)
	}()

	router := commands.NewCommandRouter(ctx)
	if err := router.Route(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

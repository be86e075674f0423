package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contentstudio/cmd/contentstudio/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		code = 1
	}

	closeStudio()
	stop()
	os.Exit(code)
}

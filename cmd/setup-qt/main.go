package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-githubactions"

	"github.com/akshaybabloo/actions-setup-qt/internal/errors"
	qtlog "github.com/akshaybabloo/actions-setup-qt/internal/log"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		reportError(os.Stdout, os.Stderr, err, qtlog.InActions(), rootCfg.errorFormat)
		os.Exit(1)
	}
}

// reportError prints err as an ::error:: command inside Actions, and as
// formatted text or JSON on stderr otherwise.
func reportError(stdout, stderr io.Writer, err error, inActions bool, format string) {
	if inActions {
		githubactions.New(githubactions.WithWriter(stdout)).Errorf("%s", err.Error())
		return
	}

	if format == outputJSON {
		data, jsonErr := errors.NewFormatter(stderr, true).FormatJSON(err)
		if jsonErr == nil {
			fmt.Fprintln(stderr, string(data))
			return
		}
	}
	errors.NewFormatter(stderr, rootCfg.noColor).Print(err)
}

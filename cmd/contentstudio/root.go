package main

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/studio"
)

// version is overridden with -ldflags at release time.
var version = "0.3.0"

var (
	flagNoInteraction bool
	flagVerbose       bool
	flagPoll          bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "contentstudio",
		Short:         "Create, test and schedule marketing content from the terminal",
		Long:          "contentstudio generates marketing content through a workspace's content API,\nkeeps the results as local drafts, and runs A/B experiments and a content\ncalendar on top of them.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.ConfigureInteraction(flagNoInteraction)
			// Service logs stay out of command output unless asked for
			if !flagVerbose {
				log.SetOutput(io.Discard)
			}
		},
	}

	root.PersistentFlags().BoolVar(&flagNoInteraction, "no-interaction", false, "Disable prompts, spinners and colors")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Show service logs")
	root.PersistentFlags().BoolVar(&flagPoll, "poll", false, "Poll for task updates instead of streaming")

	root.AddCommand(
		generateCmd(),
		watchCmd(),
		cancelCmd(),
		statusCmd(),
		historyCmd(),
		draftsCmd(),
		templatesCmd(),
		agentsCmd(),
		scheduleCmd(),
		experimentsCmd(),
		profilesCmd(),
		brandsCmd(),
	)
	return root
}

var (
	studioMu     sync.Mutex
	sharedStudio *studio.Studio
)

// getStudio opens the studio on first use and shares it across the
// command tree. closeStudio in main tears it down.
func getStudio(ctx context.Context) (*studio.Studio, error) {
	studioMu.Lock()
	defer studioMu.Unlock()

	if sharedStudio != nil {
		return sharedStudio, nil
	}

	var opts []studio.Option
	if flagPoll {
		opts = append(opts, studio.WithForcePolling())
	}

	s, err := studio.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	sharedStudio = s
	return s, nil
}

func closeStudio() {
	studioMu.Lock()
	defer studioMu.Unlock()

	if sharedStudio != nil {
		sharedStudio.Shutdown()
		sharedStudio = nil
	}
}

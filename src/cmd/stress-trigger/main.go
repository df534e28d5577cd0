// Command stress-trigger fires many concurrent TRIGGER requests at the
// resident. However many arrive, at most one capture overlay should open.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"omniselect-ocr/src/singleinstance"
)

type stressOptions struct {
	n        int
	deadline time.Duration
}

type result struct {
	launched, ok, missing, failed int32
	elapsed                       time.Duration
}

func (r result) String() string {
	return fmt.Sprintf("launched=%d ok=%d no-resident=%d err=%d elapsed=%s", r.launched, r.ok, r.missing, r.failed, r.elapsed)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts, os.Stdout)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-trigger",
		Short:         "Stress test trigger delegation to the resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := stress(opts.n, opts.deadline, singleinstance.NewClient)
			fmt.Fprintln(out, res)
			if res.missing == res.launched && res.launched > 0 {
				return fmt.Errorf("no resident found")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func stress(n int, deadline time.Duration, newClient func() singleinstance.Client) result {
	var wg sync.WaitGroup
	var res result

	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		atomic.AddInt32(&res.launched, 1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deadline)
			defer cancel()
			delegated, err := newClient().Trigger(ctx)
			switch {
			case err != nil:
				atomic.AddInt32(&res.failed, 1)
			case delegated:
				atomic.AddInt32(&res.ok, 1)
			default:
				atomic.AddInt32(&res.missing, 1)
			}
		}()
	}
	wg.Wait()
	res.elapsed = time.Since(start)
	return res
}

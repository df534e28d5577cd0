package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"omniselect-ocr/src/apperr"
	"omniselect-ocr/src/config"
	"omniselect-ocr/src/dispatcher"
	"omniselect-ocr/src/hotkey"
	"omniselect-ocr/src/notification"
	_ "omniselect-ocr/src/ocr/tesseract"
	"omniselect-ocr/src/overlay"
	"omniselect-ocr/src/runtimeinit"
	"omniselect-ocr/src/screenshot"
	"omniselect-ocr/src/singleinstance"
	"omniselect-ocr/src/tray"
	"omniselect-ocr/src/ui"
	"omniselect-ocr/src/worker"
)

const (
	appID         = "io.omniselect.ocr"
	shutdownGrace = 5 * time.Second
	pingTimeout   = 10 * time.Second
)

type mainOptions struct {
	configPath string
	apiKeyPath string
	hotkey     string
	engine     string
	verbose    bool
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		ConfigPath:         o.configPath,
		APIKeyPathOverride: o.apiKeyPath,
		Hotkey:             o.hotkey,
		Engine:             o.engine,
	}
}

func main() {
	opts := &mainOptions{}
	if err := newRootCmd(opts).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeStartup(err))
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "omniselect",
		Short:         "Select a screen region with a hotkey and copy its text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runResident(*opts)
			if err != nil && !errors.Is(err, singleinstance.ErrAlreadyRunning) {
				notification.ShowBlockingError("OmniSelect-OCR failed to start", describeStartup(err))
			}
			return err
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to a TOML config file")
	pf.StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	cmd.Flags().StringVar(&opts.hotkey, "hotkey", "", "Capture chord, e.g. ctrl+shift+2")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: tesseract or llm")

	cmd.AddCommand(newTriggerCmd(opts))
	return cmd
}

func newTriggerCmd(opts *mainOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Ask the running instance to open the capture overlay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load .env early so SINGLEINSTANCE_PORT_* are applied before the scan.
			_, _ = config.LoadWithOptions(opts.loadOptions())
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			return handleTrigger(ctx, singleinstance.NewClient(), cmd.OutOrStdout())
		},
	}
}

func handleTrigger(ctx context.Context, client singleinstance.Client, out io.Writer) error {
	delegated, err := client.Trigger(ctx)
	if err != nil {
		return fmt.Errorf("resident did not accept trigger: %w", err)
	}
	if !delegated {
		return errors.New("no running instance found; start omniselect first")
	}
	fmt.Fprintln(out, "capture overlay requested")
	return nil
}

// detectResident finds an already running resident; replaced in tests.
var detectResident = singleinstance.DetectResidentPort

func runResident(opts mainOptions) error {
	// DPI awareness must be set before any window or screen metric is touched.
	dpi := enableDPIAwareness()

	if port, ok := detectResident(context.Background()); ok {
		return fmt.Errorf("%w on port %d", singleinstance.ErrAlreadyRunning, port)
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: opts.loadOptions(),
		Verbose:     opts.verbose,
		PingTimeout: pingTimeout,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config
	log.Printf("DPI: %s", dpi)

	chord, err := cfg.Chord()
	if err != nil {
		return err
	}
	logMonitorConfiguration()
	log.Printf("OmniSelect-OCR starting: hotkey %s, engine %s, OCR deadline %v", chord, rt.Engine.Name(), cfg.OCRDeadline())

	a := app.NewWithID(appID)

	spawner := worker.NewSpawner(&worker.Pipeline{
		Capture:   screenshot.Capture,
		Engine:    rt.Engine,
		Clipboard: rt.Clipboard,
		Notifier:  rt.Notifier,
		Deadline:  cfg.OCRDeadline(),
		Settle:    cfg.CaptureSettle(),
	})
	disp := dispatcher.New(dispatcher.Options{
		Driver:       ui.FyneDriver{},
		Overlay:      overlay.NewWindow(a, nil),
		Spawn:        spawner.Go,
		Notifier:     rt.Notifier,
		PollInterval: cfg.PollInterval(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := singleinstance.NewServer(disp.Trigger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Close()

	listener, err := hotkey.Start(chord, disp.Trigger)
	if err != nil {
		if !apperr.IsFatal(err) {
			err = apperr.Startup(err, "failed to install keyboard hook")
		}
		return err
	}
	defer listener.Stop()

	tray.Install(a, tray.Options{
		Hotkey:    chord.String(),
		Port:      srv.Port(),
		OnCapture: disp.Trigger,
		OnQuit:    stop,
	})

	a.Lifecycle().SetOnStarted(func() {
		log.Printf("UI thread ready; press %s to capture", chord)
		go func() {
			if err := disp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("dispatcher stopped: %v", err)
			}
		}()
	})
	go func() {
		<-ctx.Done()
		log.Printf("Shutting down")
		fyne.Do(a.Quit)
	}()

	a.Run()

	stop()
	if n := spawner.InFlight(); n > 0 {
		log.Printf("Waiting up to %v for %d OCR worker(s)", shutdownGrace, n)
	}
	if !spawner.Wait(shutdownGrace) {
		log.Printf("Exiting with OCR workers still running")
	}
	return nil
}

// describeStartup is the message printed for a failed launch.
func describeStartup(err error) string {
	if apperr.KindOf(err) == apperr.KindStartup {
		return "startup failed: " + err.Error()
	}
	return strings.TrimSpace(err.Error())
}

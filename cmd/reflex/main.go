package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"reflex/internal/adapter/render"
	"reflex/internal/adapter/tui/monitor"
	"reflex/internal/domain"
	"reflex/internal/infra/config"
	"reflex/internal/infra/queue"
	"reflex/internal/usecase/session"
	"reflex/internal/usecase/source"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := run(); err != nil {
			exitFatal(err)
		}
		return
	}

	switch os.Args[1] {
	case "tui":
		if err := runTUI(); err != nil {
			exitFatal(err)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'reflex --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

// exitFatal reports err with its error code and exits 1.
func exitFatal(err error) {
	fmt.Fprintln(os.Stderr, fatalLine(err))
	os.Exit(1)
}

func fatalLine(err error) string {
	if code := domain.ErrorCodeOf(err); code != domain.CodeUnknown {
		return fmt.Sprintf("fatal: %v [%s]", err, code)
	}
	return fmt.Sprintf("fatal: %v", err)
}

func showUsage() {
	fmt.Println(`reflex - reactive model dispatcher

USAGE:
    reflex [COMMAND] [FLAGS]

COMMANDS:
    tui         Run the model sequence inside the interactive monitor
    doctor      Check configuration and terminal

    (no command) - Run the model sequence on stdin/stdout

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./reflex.yaml)

INPUT:
    +       increment
    -       decrement
    quit    stop the current model and move on to the next one
    other   any other line is passed to the model as text

CONFIGURATION:
    Config file: ./reflex.yaml (optional)
    Environment: REFLEX_* variables override config

EXAMPLES:
    reflex                                # counter, then cursor
    REFLEX_SEQUENCE=cursor reflex         # cursor only
    reflex --config /path/to/reflex.yaml tui`)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("REFLEX_CONFIG"); p != "" {
		return p
	}
	return "reflex.yaml"
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, domain.NewDomainError("config.Load", domain.ErrConfigLoad, err.Error())
	}
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, cleanup, err := initRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return runPlain(ctx, rt, os.Stdin, os.Stdout)
}

// runPlain runs the sequence reading inputs from stdin and writing views to
// stdout. The console reader is detached: it may still be blocked on stdin
// when the sequence ends.
func runPlain(ctx context.Context, rt *runtime, stdin io.Reader, stdout io.Writer) error {
	inTx, inRx := queue.New[domain.Input]()
	defer inRx.Close()

	console := source.NewConsole(stdin, inTx, rt.tokens(), rt.log)
	go func() {
		defer inTx.Close()
		if err := console.Run(ctx); err != nil {
			rt.log.Warn("console stopped", "error", err)
		}
	}()

	steps, err := buildSteps(rt, func(model string) (domain.Renderer, error) {
		r, err := render.New(rt.cfg.Render.Mode, stdout, rt.cfg.Render.Prefix)
		if err != nil {
			return nil, err
		}
		return render.NewGuarded(r, model, render.BreakerConfig{
			MaxFailures: rt.cfg.Render.MaxFailures,
			Cooldown:    rt.cfg.Render.Cooldown,
		}, rt.log), nil
	})
	if err != nil {
		return err
	}

	rt.log.Info("reflex starting", "sequence", strings.Join(rt.cfg.Sequence, ","), "render", rt.cfg.Render.Mode)

	done := make(chan error, 1)
	go func() { done <- session.RunSequence(ctx, inRx.C(), steps) }()

	select {
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		rt.log.Info("interrupted")
		return nil
	}
}

func runTUI() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Log lines on the terminal would tear the alternate screen.
	if cfg.Logger.Output == "" || cfg.Logger.Output == "stderr" || cfg.Logger.Output == "stdout" {
		cfg.Logger.Output = "discard"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	rt, cleanup, err := initRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	inTx, inRx := queue.New[domain.Input]()
	defer inRx.Close()
	defer inTx.Close()

	mon := monitor.New(inTx, rt.tokens(), rt.bus, rt.log,
		monitor.WithEventRate(rt.cfg.Events.MonitorRate, rt.cfg.Events.MonitorBurst))
	steps, err := buildSteps(rt, func(model string) (domain.Renderer, error) {
		return mon.Renderer(model), nil
	})
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		err := session.RunSequence(ctx, inRx.C(), steps)
		mon.Finish(err)
		done <- err
	}()

	if err := mon.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	select {
	case err := <-done:
		return err
	default:
		rt.log.Info("monitor closed before the sequence finished")
		return nil
	}
}

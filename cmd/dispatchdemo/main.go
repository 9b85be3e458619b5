// Command dispatchdemo exercises the dispatcher from the command line:
// subscribe a few handlers, dispatch events, and print the notifications.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/dispatch"
	"github.com/dshills/dispatch/config"
	"github.com/dshills/dispatch/script"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "dispatchdemo",
		Short:         "Demonstrate event subscription and dispatch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")

	newLogger := func() zerolog.Logger {
		lvl, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	}

	greetCmd := &cobra.Command{
		Use:     "greet [name]",
		Short:   "Subscribe a greeting handler and dispatch to it",
		Example: "  dispatchdemo greet Alice",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "world"
			if len(args) == 1 {
				name = args[0]
			}
			return runGreet(cmd.Context(), newLogger(), name)
		},
	}

	luaCmd := &cobra.Command{
		Use:     "lua <handler.lua> <event-name>",
		Short:   "Dispatch an event to a handler written in Lua",
		Example: "  dispatchdemo lua handler.lua user.created",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLua(cmd.Context(), newLogger(), args[0], args[1])
		},
	}

	manifestCmd := &cobra.Command{
		Use:     "manifest <subscriptions.toml> <event-name>",
		Short:   "Load a subscription manifest and dispatch an event through it",
		Example: "  dispatchdemo manifest subscriptions.toml user.created",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(cmd.Context(), newLogger(), args[0], args[1])
		},
	}

	root.AddCommand(greetCmd, luaCmd, manifestCmd)
	return root
}

func runGreet(ctx context.Context, log zerolog.Logger, name string) error {
	d := dispatch.New(dispatch.WithLogger(log))

	greet := dispatch.Func("greet", func(_ context.Context, evt *dispatch.Event, _ ...any) (any, error) {
		who, _ := evt.Get("name")
		return fmt.Sprintf("Hello, %v!", who), nil
	})
	shout := dispatch.Func("shout", func(_ context.Context, evt *dispatch.Event, _ ...any) (any, error) {
		who, _ := evt.Get("name")
		return strings.ToUpper(fmt.Sprintf("hello, %v!", who)), nil
	})

	if _, err := d.Subscribe("greeting", greet, dispatch.WithPriority(10)); err != nil {
		return err
	}
	if _, err := d.Subscribe("greeting", shout); err != nil {
		return err
	}

	evt, err := dispatch.NewEventBuilder().
		WithName("greeting").
		WithValue("name", name).
		Build()
	if err != nil {
		return err
	}

	note, err := d.Dispatch(ctx, evt, dispatch.NamespaceGlobal)
	if err != nil {
		return err
	}
	printNotification(note)
	return nil
}

func runLua(ctx context.Context, log zerolog.Logger, path, eventName string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	handler, err := script.New("lua:"+path, string(src))
	if err != nil {
		return err
	}
	defer handler.Close()

	d := dispatch.New(dispatch.WithLogger(log))
	if _, err := d.Subscribe(eventName, handler); err != nil {
		return err
	}

	evt, err := dispatch.NewEventBuilder().WithName(eventName).Build()
	if err != nil {
		return err
	}
	note, err := d.Dispatch(ctx, evt, dispatch.NamespaceGlobal)
	if err != nil {
		return err
	}
	printNotification(note)
	return nil
}

func runManifest(ctx context.Context, log zerolog.Logger, path, eventName string) error {
	d := dispatch.New(dispatch.WithLogger(log))

	// The demo registry: manifest entries reference handlers by these names.
	handlers := map[string]dispatch.Handler{
		"echo": dispatch.Func("echo", func(_ context.Context, evt *dispatch.Event, _ ...any) (any, error) {
			return evt.Data().Map(), nil
		}),
		"count": dispatch.Func("count", func(_ context.Context, evt *dispatch.Event, _ ...any) (any, error) {
			return evt.Data().Len(), nil
		}),
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("manifest %s not found", path)
	}
	codes, err := config.Apply(d, cfg, handlers)
	if err != nil {
		return err
	}
	log.Info().Int("subscriptions", len(codes)).Str("manifest", path).Msg("manifest applied")

	evt, err := dispatch.NewEventBuilder().WithName(eventName).Build()
	if err != nil {
		return err
	}
	note, err := d.Dispatch(ctx, evt, dispatch.NamespaceGlobal)
	if err != nil {
		return err
	}
	printNotification(note)
	return nil
}

func printNotification(note *dispatch.Notification) {
	fmt.Printf("event %s in %s: %s (%d handlers, %s)\n",
		note.Event().Name(), note.Namespace(), note.Status(), len(note.HandlerNames()), note.Duration())
	for _, name := range note.HandlerNames() {
		value, _ := note.Result(name)
		fmt.Printf("  %s => %v\n", name, value)
	}
	for _, herr := range note.Errors() {
		fmt.Printf("  error: %s\n", herr.Error())
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/hayeah/runlens"
)

func main() {
	var args runlens.Args
	parser, err := arg.NewParser(arg.Config{Program: "runlens"}, &args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := parser.Parse(os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, arg.ErrHelp):
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		case errors.Is(err, arg.ErrVersion):
			fmt.Println("runlens 0.1")
			os.Exit(0)
		default:
			parser.Fail(err.Error())
		}
	}
	if parser.Subcommand() == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &args); err != nil {
		fmt.Fprintln(os.Stderr, "runlens:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args *runlens.Args) error {
	app, cleanup, err := runlens.InitApp(args)
	if err != nil {
		return err
	}
	defer cleanup()
	return app.Run(ctx)
}

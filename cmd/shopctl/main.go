// Package main реализует консольный клиент витрины поверх того же ядра, что и сервер.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/storefront"
)

// cli хранит общее состояние команд.
type cli struct {
	binding *config.Binding
	verbose bool

	logger *zap.Logger
	app    *storefront.App
	in     *bufio.Reader
	out    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	root, err := c.rootCommand()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (c *cli) rootCommand() (*cobra.Command, error) {
	fs := flag.NewFlagSet("shopctl", flag.ContinueOnError)
	b, err := config.Bind(fs)
	if err != nil {
		return nil, err
	}
	c.binding = b

	root := &cobra.Command{
		Use:               "shopctl",
		Short:             "Command-line storefront client",
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().AddGoFlagSet(fs)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log backend calls")

	root.AddCommand(
		c.productsCommand(),
		c.cartCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.registerCommand(),
		c.resetPasswordCommand(),
		c.profileCommand(),
		c.ordersCommand(),
		c.checkoutCommand(),
		c.subscribeCommand(),
		c.contactCommand(),
	)
	return root, nil
}

func (c *cli) open(cmd *cobra.Command, args []string) error {
	cfg, err := c.binding.Resolve()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	c.logger = zap.NewNop()
	if c.verbose {
		if c.logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	app, err := storefront.New(cfg, c.logger)
	if err != nil {
		return err
	}
	c.app = app
	app.Toasts.Subscribe(func(t notify.Toast) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", t.Level, t.Message)
	})

	return app.Start(cmd.Context())
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	_ = c.logger.Sync()
	return c.app.Close()
}

// prompt читает строку ответа пользователя.
func (c *cli) prompt(label string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", label)
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}

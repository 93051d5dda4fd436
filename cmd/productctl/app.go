package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/config"
	"github.com/abgdnv/catalogadmin/internal/listview"
	"github.com/abgdnv/catalogadmin/internal/productapi"
	"github.com/abgdnv/catalogadmin/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/abgdnv/catalogadmin/pkg/config/configloader"
)

const serviceName = "admin"

// errAlerted is returned when the user has already been told what went wrong.
var errAlerted = errors.New("command failed")

// app holds what every sub-command needs. It is filled in by the root command's
// PersistentPreRunE.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	apiURL     string
	logLevel   string
	yes        bool

	// newAPI builds the Product API client; tests replace it.
	newAPI func(cfg pkgconfig.ProductAPIConfig, logger *slog.Logger) listview.ProductAPI

	cfg      *config.CLIConfig
	logger   *slog.Logger
	notifier *stderrNotifier
	view     *listview.View
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		newAPI: func(cfg pkgconfig.ProductAPIConfig, logger *slog.Logger) listview.ProductAPI {
			return productapi.NewClient(cfg, logger)
		},
	}
}

// setup loads the configuration and builds the view.
func (a *app) setup() error {
	if a.configFile != "" {
		if err := os.Setenv(strings.ToUpper(serviceName)+"_CONFIG_FILE", a.configFile); err != nil {
			return fmt.Errorf("failed to select config file: %w", err)
		}
	}
	if a.apiURL != "" {
		if err := os.Setenv(strings.ToUpper(serviceName)+"_PRODUCTAPI_URL", a.apiURL); err != nil {
			return fmt.Errorf("failed to set product API URL: %w", err)
		}
	}
	cfg, err := configloader.Load[config.CLIConfig](serviceName)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = bootstrap.NewLoggerTo(a.errOut, level)
	a.logger.Debug("Configuration loaded", "config", cfg.String())

	a.notifier = &stderrNotifier{w: a.errOut}
	a.view = listview.New(a.newAPI(cfg.ProductAPI, a.logger), a.notifier, cfg.View.PageSize, a.logger)
	return nil
}

// result turns the outcome of a view operation into the command's error. Anything the
// user was alerted about fails the command.
func (a *app) result(err error) error {
	if a.notifier != nil && a.notifier.Count() > 0 {
		return errAlerted
	}
	return err
}

// confirm asks prompt on the terminal. --yes answers it up front.
func (a *app) confirm(_ context.Context, prompt string) bool {
	if a.yes {
		return true
	}
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	answer, err := a.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// stderrNotifier prints alerts as they happen and counts them.
type stderrNotifier struct {
	mu    sync.Mutex
	w     io.Writer
	count int
}

func (n *stderrNotifier) Alert(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	fmt.Fprintf(n.w, "Error: %s\n", message)
}

func (n *stderrNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

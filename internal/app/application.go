package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/sirupsen/logrus"

	"dcf77/internal/logging"
	"dcf77/internal/pin"
	"dcf77/internal/receiver"
)

const statusTimeLayout = "%Y-%m-%d %H:%M:%S %Z"

// Application wires a GPIO pin, the decode pipeline and log rotation into
// a runnable program.
type Application struct {
	config       Config
	logger       *logrus.Logger
	line         *pin.Line
	receiver     *receiver.Receiver
	minuteLogger *logging.MinuteLogger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewApplication creates a new application instance.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start initializes every component, runs the capture loop, and blocks
// until a shutdown signal arrives.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("starting DCF77 decoder")

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.run(); err != nil {
		app.logger.WithError(err).Error("application error")
		return err
	}

	<-sigChan
	app.logger.Info("received shutdown signal")
	app.shutdown()

	return nil
}

func (app *Application) initializeComponents() error {
	var err error

	app.line, err = pin.Open(app.config.GPIOChip, app.config.GPIOLine, app.logger)
	if err != nil {
		return fmt.Errorf("failed to open gpio line: %w", err)
	}

	app.receiver = receiver.New(app.config.Invert, app.logger)
	app.receiver.OnMinute(app.handleMinute)

	app.minuteLogger, err = logging.NewMinuteLogger(app.config.LogDir, app.config.LogRotateUTC, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize minute logger: %w", err)
	}

	if err := app.minuteLogger.CleanupOldLogs(app.config.MaxLogDays); err != nil {
		app.logger.WithError(err).Warn("failed to clean up old minute logs")
	}

	return nil
}

func (app *Application) run() error {
	app.logger.Info("starting gpio sampling and DCF77 decoding")

	sampleChan := make(chan bool, 1000)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.line.StartSampling(app.ctx, sampleChan); err != nil {
			app.logger.WithError(err).Error("gpio sampling failed")
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.minuteLogger.Start(app.ctx)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.processSamples(sampleChan)
	}()

	app.logger.Info("all components started successfully")
	return nil
}

func (app *Application) processSamples(sampleChan <-chan bool) {
	for {
		select {
		case <-app.ctx.Done():
			app.logger.Info("sample processing stopped")
			return
		case raw, ok := <-sampleChan:
			if !ok {
				return
			}
			app.receiver.Sample(raw)
		}
	}
}

// handleMinute is the receiver's OnMinute callback: it formats the
// decoded minute and writes it to both stdout and the rotating log.
// dateParityValid is a sanity-check signal only; a failed check does not
// suppress the emission, since the field decoders may already be locked
// with high confidence from prior minutes and a single noisy frame
// shouldn't blank out the clock.
func (app *Application) handleMinute(epoch int64, dateParityValid bool) {
	decoded := time.Unix(epoch, 0).UTC()

	line, err := strftime.Format(statusTimeLayout, decoded)
	if err != nil {
		app.logger.WithError(err).Error("failed to format decoded timestamp")
		return
	}

	app.logger.WithFields(logrus.Fields{
		"epoch":             epoch,
		"date_parity_valid": dateParityValid,
	}).Info("decoded DCF77 minute")

	if err := app.minuteLogger.LogMinute(logging.MinuteRecord{Epoch: epoch, Formatted: line}); err != nil {
		app.logger.WithError(err).Debug("failed to write decoded minute to log")
	}

	fmt.Printf("%s,%d\n", line, epoch)
}

func (app *Application) shutdown() {
	app.logger.Info("shutting down application")
	app.cancel()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("all goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("shutdown timeout, forcing exit")
	}

	if app.line != nil {
		app.line.Close()
	}
	if app.minuteLogger != nil {
		app.minuteLogger.Close()
	}

	app.logger.Info("shutdown completed")
}

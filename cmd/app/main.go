// Image Filter Chain - pick an image, stack filters, tune them live

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"image-filter-chain/internal/config"
	"image-filter-chain/internal/gui"
)

const (
	AppName    = "Image Filter Chain"
	AppID      = "com.imagefilterchain.app"
	AppVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	cfg, err := config.LoadConfig(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *debugMode {
		cfg.Debug = true
	}

	logger := initLogger(cfg)
	logger.WithFields(logrus.Fields{
		"version":       AppVersion,
		"debug_mode":    cfg.Debug,
		"default_image": cfg.DefaultImage,
	}).Info("Starting Image Filter Chain")

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.DocumentIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp := gui.NewApplication(myApp, cfg, logger)
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	os.Exit(0)
}

// initLogger initializes the logger with appropriate level
func initLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(cfg.Level())

	if cfg.Debug || cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   cfg.Debug,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

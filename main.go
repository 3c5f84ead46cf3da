package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/database"
	"tradeengine/src/engine"
	"tradeengine/src/ledger"
	"tradeengine/src/notify"
	"tradeengine/src/outcome"
	"tradeengine/src/pricing"
	"tradeengine/src/repository"
	"tradeengine/src/scheduler"
	"tradeengine/src/server"
)

var (
	PORT     = os.Getenv("SERVER_PORT")
	APP_NAME = os.Getenv("APP_NAME")
)

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	engineConfig := engine.GetConfig()

	opening, err := decimal.NewFromString(engineConfig.OpeningBalance)
	if err != nil {
		logger.WithError(err).Fatal("Invalid opening balance")
	}

	walletLedger := ledger.NewWalletLedger()
	if err := walletLedger.Seed(context.Background(), engineConfig.Asset, opening); err != nil {
		logger.WithError(err).Fatal("Failed to seed wallet")
	}

	positions := repository.NewPositionRepository()
	notifications := repository.NewNotificationRepository()
	activities := repository.NewActivityRepository()
	quotes := repository.NewQuoteRepository()

	hub := notify.NewHub()
	go hub.Run()
	defer hub.Close()

	emitter := notify.NewEmitter(notifications, activities, hub, engineConfig.UserID)

	pricingConfig := pricing.GetConfig()
	prices := pricing.NewCachedSource(pricing.NewSourceFromConfig(pricingConfig), quotes)

	probability := outcome.NewRandomModel(
		engineConfig.QuantWinRate,
		engineConfig.QuantMinProfitPct,
		engineConfig.QuantMaxProfitPct,
		engineConfig.QuantMinLossPct,
		engineConfig.QuantMaxLossPct,
	)
	calc := outcome.NewCalculator(probability)

	eng := engine.New(positions, walletLedger, prices, calc, emitter, engineConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settlement := scheduler.New(eng, positions, prices, scheduler.GetConfig())
	go func() {
		if err := settlement.Run(ctx); err != nil {
			logger.WithError(err).Error("settlement loop exited")
		}
	}()

	port := PORT
	if port == "" {
		port = server.GetConfig().Port
	}

	server.StartServer(port, server.Deps{
		Engine:        eng,
		Positions:     positions,
		Notifications: notifications,
		Activities:    activities,
		Hub:           hub,
		UserID:        engineConfig.UserID,
	})
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}

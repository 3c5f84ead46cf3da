package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/crypto/bcrypt"

	"tradeengine/src/database"
	"tradeengine/src/repository"
	"tradeengine/src/scheduler"
)

var Version string

func main() {
	setupLogger()

	app := cli.NewApp()
	app.Name = "tradeengine CMD"
	app.Usage = "The trade engine command line interface"

	app.Commands = []cli.Command{
		cleanupCMD,
		adminTokenCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	cleanupCMD = cli.Command{
		Name:        "cleanup",
		Usage:       "prune settled position history once",
		Action:      cleanupAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Delete terminal positions older than the retention window`,
	}
	adminTokenCMD = cli.Command{
		Name:        "admintoken",
		Usage:       "hash an admin override token",
		Action:      adminTokenAction,
		ArgsUsage:   "<token>",
		Flags:       []cli.Flag{},
		Description: `Print the bcrypt hash to put in ADMIN_TOKEN_HASH`,
	}
)

func cleanupAction(c *cli.Context) error {
	if err := database.InitMainDB(); err != nil {
		return err
	}

	config := scheduler.GetConfig()
	cutoff := time.Now().AddDate(0, 0, -config.RetentionDays)

	pruned, err := repository.NewPositionRepository().PruneTerminalBefore(context.Background(), cutoff)
	if err != nil {
		return err
	}

	logrus.WithField("rows_pruned", pruned).Info("cleanup finished")
	return nil
}

func adminTokenAction(c *cli.Context) error {
	token := c.Args().First()
	if token == "" {
		return fmt.Errorf("usage: admintoken <token>")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	fmt.Println(string(hash))
	return nil
}

func setupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	service_interface "github.com/channelforge/forcemove/internal/interface"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "hubd"
	app.Usage = "State channel hub daemon"
	app.Commands = append(
		app.Commands,
		&startCommand,
		&genKeyCommand,
	)

	if err := app.Run(os.Args); err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var startCommand = cli.Command{
	Name:   "start",
	Usage:  "Run the hub daemon",
	Action: startAction,
}

var genKeyCommand = cli.Command{
	Name:   "genkey",
	Usage:  "Generate a new hub signing key",
	Action: genKeyAction,
}

func startAction(ctx *cli.Context) error {
	svc, err := service_interface.NewService()
	if err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}

func genKeyAction(ctx *cli.Context) error {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(key.Serialize()))
	return nil
}

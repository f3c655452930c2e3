// Command spmd hosts an emulated secure partition: it loads a compressed
// partition image into an in-memory address space, answers its protocol
// messages with a built-in echo firmware, and serves the diagnostics API.
// It exists to exercise the manager end to end without trusted hardware.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/teekernel/tee-partition-manager/common"
	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/httpserver"
	"github.com/teekernel/tee-partition-manager/interfaces"
	"github.com/teekernel/tee-partition-manager/partition"
	"github.com/teekernel/tee-partition-manager/storage"
	"github.com/teekernel/tee-partition-manager/vmm"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:     "image",
		Usage:    "path to the compressed partition image",
		Required: true,
	},
	&cli.Uint64Flag{
		Name:     "uncompressed-size",
		Usage:    "declared uncompressed image size in bytes",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for diagnostics API",
	},
	&cli.StringFlag{
		Name:  "ree-store",
		Value: "file:///var/lib/spmd/ree",
		Usage: "location URI of the normal-world storage medium",
	},
	&cli.StringFlag{
		Name:  "rpmb-store",
		Value: "mem:",
		Usage: "location URI of the replay-protected storage medium",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "pprof",
		Value: false,
		Usage: "enable pprof debug endpoint",
	},
}

func main() {
	app := &cli.App{
		Name:   "spmd",
		Usage:  "Host an emulated secure partition and serve its diagnostics",
		Flags:  flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool("log-debug"),
		JSON:    cCtx.Bool("log-json"),
		Service: "spmd",
		Version: common.Version,
	})

	image, err := os.ReadFile(cCtx.String("image"))
	if err != nil {
		logger.Error("Failed to read partition image", "err", err)
		return err
	}

	router := storage.NewRouter(logger)
	for id, uri := range map[uint32]string{
		storage.StorageREE:  cCtx.String("ree-store"),
		storage.StorageRPMB: cCtx.String("rpmb-store"),
	} {
		store, err := storage.FromLocation(uri, logger)
		if err != nil {
			logger.Error("Failed to create object store", "uri", uri, "err", err)
			return err
		}
		router.Register(id, store)
	}

	cfg := partition.DefaultConfig(image, cCtx.Uint64("uncompressed-size"))
	mgr, err := partition.NewManager(cfg, echoPlatform(), vmm.NewProvider(), router, logger)
	if err != nil {
		logger.Error("Failed to create partition manager", "err", err)
		return err
	}

	sess, err := mgr.Open(cfg.Identity)
	if err != nil {
		logger.Error("Failed to initialize partition", "err", err)
		return err
	}
	defer sess.CloseSession()

	logger.Info("Partition running", "instance", sess.InstanceID())

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String("listen-addr"),
		EnablePprof:              cCtx.Bool("pprof"),
		Log:                      logger,
		DrainDuration:            30 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}, httpserver.NewHandler(mgr.Registry(), logger))
	if err != nil {
		return err
	}

	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	srv.Shutdown()
	return nil
}

// echoPlatform emulates a partition whose firmware acknowledges every
// communicate request by echoing the request length back.
func echoPlatform() *partition.MockPlatform {
	return &partition.MockPlatform{
		Handler: func(frame *ffa.ExecState) interfaces.Trap {
			switch frame.Function() {
			case ffa.FuncMsgSendDirectReq64:
				length := frame.X[4]
				partition.DirectResponse(frame, length)
			default:
				// boot entry: report ready
				partition.DirectResponse(frame, 0)
			}
			return interfaces.Trap{Kind: interfaces.TrapMessage}
		},
	}
}

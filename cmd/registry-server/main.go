package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/certvault/certificate-registry-backend/accesscontrol"
	"github.com/certvault/certificate-registry-backend/cmd/flags"
	"github.com/certvault/certificate-registry-backend/fhe"
	"github.com/certvault/certificate-registry-backend/httpserver"
	"github.com/certvault/certificate-registry-backend/interfaces"
	"github.com/certvault/certificate-registry-backend/ledger"
	"github.com/certvault/certificate-registry-backend/query"
	"github.com/certvault/certificate-registry-backend/registry"
	"github.com/certvault/certificate-registry-backend/storage"
)

var serverFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:     "master-seed",
		Required: true,
		Usage:    "hex-encoded 32-byte master seed for the confidential compute service",
	},
	&cli.StringFlag{
		Name:     "owner",
		Required: true,
		Usage:    "registry owner address, 0x-prefixed hex",
	},
	&cli.StringFlag{
		Name:  "verifier",
		Usage: "registry verifier address, 0x-prefixed hex; defaults to the owner",
	},
	&cli.BoolFlag{
		Name:  "auto-authorize-issuers",
		Value: true,
		Usage: "authorize issuers at registration time instead of waiting for the owner",
	},
	&cli.Int64Flag{
		Name:  "finality-delay-ms",
		Value: 0,
		Usage: "artificial ledger finality delay in milliseconds",
	},
	&cli.StringSliceFlag{
		Name:  "storage",
		Value: cli.NewStringSlice("ledger://local"),
		Usage: "artifact store location URIs (file://, s3://, ipfs://, vault://, ledger://); repeatable for multi-store",
	},
	flags.LogServiceFlagFn("certificate-registry"),
}

func main() {
	app := &cli.App{
		Name:   "registry-server",
		Usage:  "Serve the certificate registry API",
		Flags:  append(serverFlags, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	listenAddr := cCtx.String("listen-addr")
	logger := flags.SetupLogger(cCtx)

	seed, err := hex.DecodeString(cCtx.String("master-seed"))
	if err != nil || len(seed) != 32 {
		logger.Error("Invalid master-seed - must be 64 hex chars (32 bytes)", "err", err)
		return errors.New("invalid master-seed")
	}

	owner, err := interfaces.NewAccountAddressFromHex(cCtx.String("owner"))
	if err != nil {
		return fmt.Errorf("invalid owner address: %w", err)
	}

	verifier := owner
	if v := cCtx.String("verifier"); v != "" {
		verifier, err = interfaces.NewAccountAddressFromHex(v)
		if err != nil {
			return fmt.Errorf("invalid verifier address: %w", err)
		}
	}

	compute, err := fhe.NewSimpleFHE(seed)
	if err != nil {
		logger.Error("Failed to create confidential compute service", "err", err)
		return err
	}

	// The registry scope is derived from the master seed so handles stay
	// bound to this deployment.
	scope, err := interfaces.NewAccountAddressFromBytes(crypto.Keccak256(seed, []byte("registry-scope"))[12:])
	if err != nil {
		return err
	}
	logger.Info("Registry scope derived", "scope", scope.String())

	finalityDelay := time.Duration(cCtx.Int64("finality-delay-ms")) * time.Millisecond
	ldg := ledger.NewMemoryLedger(finalityDelay, logger)

	machine := registry.NewStateMachine(registry.Config{
		Owner:                owner,
		Verifier:             verifier,
		AutoAuthorizeIssuers: cCtx.Bool("auto-authorize-issuers"),
	}, compute, logger)
	ldg.SetApplier(machine)

	reg := registry.New(machine, ldg, logger)
	evaluator := accesscontrol.NewEvaluator(reg.Snapshot(), scope, logger)
	queries := query.NewService(reg.Snapshot(), logger)

	storageFactory := storage.NewStoreFactory(logger, ldg)
	locations := make([]interfaces.ArtifactLocation, 0)
	for _, uri := range cCtx.StringSlice("storage") {
		location, err := interfaces.NewArtifactLocation(uri)
		if err != nil {
			return fmt.Errorf("invalid storage location %q: %w", uri, err)
		}
		locations = append(locations, location)
	}
	artifacts, err := storageFactory.CreateMultiStore(locations)
	if err != nil {
		logger.Error("Failed to create artifact stores", "err", err)
		return err
	}

	handler := httpserver.NewHandler(reg, evaluator, compute, queries, artifacts, scope, logger)

	cfg := flags.ConfigureServer(cCtx, logger, listenAddr)
	server, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutting down")

	server.Shutdown()
	return nil
}

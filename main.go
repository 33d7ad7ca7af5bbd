package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shadowmint/go-token-client/api"
	"github.com/shadowmint/go-token-client/contract"
	"github.com/shadowmint/go-token-client/db"
	"github.com/shadowmint/go-token-client/fhe"
	"github.com/shadowmint/go-token-client/health"
	"github.com/shadowmint/go-token-client/ingest"
	"github.com/shadowmint/go-token-client/metrics"
	"github.com/shadowmint/go-token-client/state"
	"github.com/shadowmint/go-token-client/tracker"
	"github.com/shadowmint/go-token-client/workflow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "TOKEN_CLIENT"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	log.SetOutput(os.Stdout) // default is stderr

	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] main: no env file found")
	}

	var cfg struct {
		Chain struct {
			RpcUrl          string `conf:"default:ws://localhost:8545"`
			ChainId         int64  `conf:"default:31337"`
			ContractAddress string `conf:"required"`
			PrivateKey      string `conf:"required,noprint"`
		}
		Relayer struct {
			Url      string        `conf:"default:http://localhost:8548"`
			Timeout  time.Duration `conf:"default:30s"`
			Provider string        `conf:"default:local"`
		}
		Server struct {
			HttpHost        string `conf:"default:0.0.0.0:8000"`
			MetricsHttpHost string `conf:"default:0.0.0.0:9999"`
		}
		Client struct {
			MetricsNamespace    string        `conf:"default:token_client"`
			InternalStoreFolder string        `conf:"default:store"`
			ReadCacheTTL        time.Duration `conf:"default:30s"`
			CooldownCacheTTL    time.Duration `conf:"default:5s"`
			StatusPollInterval  time.Duration `conf:"default:15s"`
			ReceiptPollInterval time.Duration `conf:"default:2s"`
			ResubscribeDelay    time.Duration `conf:"default:5s"`
		}
	}

	// load config
	if err := conf.Parse(os.Args[1:], envPrefix, &cfg); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	log.Printf("main: Config :\n%v\n", out)

	store, err := db.NewPebbleStore(cfg.Client.InternalStoreFolder)
	if err != nil {
		return errors.Wrap(err, "creating db")
	}
	defer store.Close()

	clientState := state.NewStore(sLogger, store)
	events, err := store.GetTimeline()
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return errors.Wrap(err, "loading timeline")
	}
	clientState.LoadTimeline(events)
	log.Printf("main: Loaded [%d] timeline events.", len(events))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := ethclient.DialContext(ctx, cfg.Chain.RpcUrl)
	if err != nil {
		return errors.Wrap(err, "connecting to chain rpc")
	}
	defer client.Close()

	sender, err := contract.NewKeyedSender(client, cfg.Chain.PrivateKey, big.NewInt(cfg.Chain.ChainId))
	if err != nil {
		return errors.Wrap(err, "creating transaction sender")
	}
	wallet := sender.From()
	contractAddress := common.HexToAddress(cfg.Chain.ContractAddress)
	log.Printf("main: Using wallet [%s] against contract [%s].", wallet.Hex(), contractAddress.Hex())

	reader := contract.NewReader(client, contractAddress)
	cachedReader := contract.NewCachedReader(reader, cfg.Client.ReadCacheTTL, cfg.Client.CooldownCacheTTL)
	writer := contract.NewWriter(sender, contractAddress)
	gateway := fhe.NewGateway(fhe.NewRelayerFactory(cfg.Relayer.Url, cfg.Relayer.Timeout), cfg.Relayer.Provider, sLogger)
	txTracker := tracker.NewTracker(client, sLogger, cfg.Client.ReceiptPollInterval)

	m := metrics.NewMetrics(cfg.Client.MetricsNamespace)
	transfer := workflow.NewTransfer(gateway, writer, txTracker, cachedReader, clientState,
		contractAddress, wallet, sLogger, m)
	decryption := workflow.NewBalanceDecryption(cachedReader, gateway, writer, txTracker, clientState, sLogger, m)
	supply := workflow.NewSupplyDecryption(cachedReader, gateway, writer, txTracker, sLogger, m)
	ops := workflow.NewOps(writer, txTracker, cachedReader, clientState, wallet, sLogger, m)

	ingestor := ingest.NewIngestor(client, clientState, contractAddress, sLogger, m, cfg.Client.ResubscribeDelay)
	poller := ingest.NewStatusPoller(cachedReader, clientState, wallet, sLogger, cfg.Client.StatusPollInterval)

	go func() {
		if err := ingestor.Backfill(ctx, wallet); err != nil {
			sLogger.Errorw("backfilling account history", "error", err)
		}
		if run, ran := decryption.AutoExecute(ctx, wallet, nil); ran && run.Err != nil {
			sLogger.Errorw("initial balance decryption failed", "error", run.Err)
		}
	}()
	go func() {
		if err := ingestor.Run(ctx); err != nil {
			sLogger.Errorw("running event ingestion", "error", err)
		}
	}()
	go func() {
		if err := poller.Run(ctx); err != nil {
			sLogger.Errorw("running status poller", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	handler := api.NewHandler(transfer, decryption, supply, ops, clientState, cachedReader, wallet)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", handler.GetStatus)
	mux.HandleFunc("GET /timeline", handler.GetTimeline)
	mux.HandleFunc("POST /transfer", handler.PostTransfer)
	mux.HandleFunc("POST /balance/decrypt", handler.PostDecrypt)
	mux.HandleFunc("POST /balance/clear", handler.PostClearBalance)
	mux.HandleFunc("POST /supply/decrypt", handler.PostDecryptSupply)
	mux.HandleFunc("POST /faucet/claim", handler.PostClaimFaucet)
	mux.HandleFunc("POST /faucet/settings", handler.PostFaucetSettings)
	mux.HandleFunc("POST /mint", handler.PostMint)
	mux.HandleFunc("POST /burn", handler.PostBurn)
	mux.HandleFunc("POST /ownership", handler.PostTransferOwnership)
	mux.HandleFunc("GET /health", health.Health)

	serverError := make(chan error, 1)
	go func() {
		log.Printf("main: Starting server on addr [%s].", cfg.Server.HttpHost)
		serverError <- http.ListenAndServe(cfg.Server.HttpHost, mux)
	}()

	metricsServerError := make(chan error, 1)
	go func() {
		log.Printf("main: Starting metrics server on addr [%s].", cfg.Server.MetricsHttpHost)
		http.Handle("/metrics", promhttp.Handler())
		metricsServerError <- http.ListenAndServe(cfg.Server.MetricsHttpHost, nil)
	}()

	log.Println("main: Service started.")

	for {
		select {
		case <-shutdown:
			log.Println("main: Received shutdown signal, shutting down...")
			return nil
		case err := <-metricsServerError:
			return errors.Wrapf(err, "[ERROR] starting metrics endpoint.")
		case err := <-serverError:
			return errors.Wrapf(err, "[ERROR] starting server endpoint(s).")
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/Ratio1/graph_sdk_go/internal/devseed"
	"github.com/Ratio1/graph_sdk_go/internal/logging"
	"github.com/Ratio1/graph_sdk_go/internal/sandbox"
	"github.com/Ratio1/graph_sdk_go/pkg/store"
	storemock "github.com/Ratio1/graph_sdk_go/pkg/store/mock"
	threadsmock "github.com/Ratio1/graph_sdk_go/pkg/threads/mock"
)

func main() {
	if err := run(); err != nil {
		color.Red("graph-sandbox: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":8787", "listen address")
	storeSeed := flag.String("store-seed", "", "path to JSON/YAML seed for the store")
	threadsSeed := flag.String("threads-seed", "", "path to JSON/YAML seed for threads")
	dbPath := flag.String("db", "", "persist the store in this SQLite file instead of memory")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	nsShape := flag.String("namespaces-shape", string(sandbox.NamespacesObject), "GET /store/namespaces payload: object or array")
	verbose := flag.Bool("verbose", false, "log every request")
	flag.Parse()

	logger, err := logging.New(logging.Verbosity(*verbose), logging.FormatConsole)
	if err != nil {
		return err
	}
	defer logger.Sync()

	failCfg, err := sandbox.ParseFailConfig(*fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}
	shape := sandbox.NamespaceShape(*nsShape)
	if shape != sandbox.NamespacesObject && shape != sandbox.NamespacesArray {
		return fmt.Errorf("unknown namespaces shape %q", *nsShape)
	}

	storeBackend, closeStore, err := openStore(*dbPath, *storeSeed)
	if err != nil {
		return err
	}
	defer closeStore()

	threadBackend := threadsmock.New()
	if *threadsSeed != "" {
		entries, err := devseed.LoadThreadSeed(*threadsSeed)
		if err != nil {
			return fmt.Errorf("load threads seed: %w", err)
		}
		if err := threadBackend.Seed(entries); err != nil {
			return fmt.Errorf("apply threads seed: %w", err)
		}
	}

	server := &http.Server{
		Addr: *addr,
		Handler: sandbox.New(storeBackend, threadBackend, sandbox.Options{
			Latency:        *latency,
			Fail:           failCfg,
			NamespaceShape: shape,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("graph-sandbox listening",
		zap.String("addr", *addr),
		zap.Bool("sqlite", *dbPath != ""),
		zap.Duration("latency", *latency),
		zap.Float64("fail_rate", failCfg.Rate))
	printExports(*addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(dbPath, seedPath string) (store.Backend, func(), error) {
	var (
		backend interface {
			store.Backend
			Seed([]devseed.StoreSeedEntry) error
		}
		closeFn = func() {}
	)
	if dbPath != "" {
		sqliteStore, err := sandbox.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		backend = sqliteStore
		closeFn = func() { _ = sqliteStore.Close() }
	} else {
		backend = storemock.New()
	}

	if seedPath != "" {
		entries, err := devseed.LoadStoreSeed(seedPath)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("load store seed: %w", err)
		}
		if err := backend.Seed(entries); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("apply store seed: %w", err)
		}
	}
	return backend, closeFn, nil
}

func printExports(addr string) {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("export GRAPH_RUNTIME_MODE=http")
	cyan.Printf("export GRAPH_API_URL=http://%s\n", host)
	fmt.Println()
}

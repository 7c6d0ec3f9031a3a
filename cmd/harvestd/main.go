package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	harvestd "github.com/iov-one/harvest/cmd/harvestd/app"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/rpcclient"
	"github.com/iov-one/harvest/store"
	"github.com/tendermint/tendermint/libs/log"
)

var (
	flagHome = "home"
	varHome  *string
)

func init() {
	defaultHome := filepath.Join(os.ExpandEnv("$HOME"), ".harvestd")
	varHome = flag.String(flagHome, defaultHome, "directory to store files under")

	flag.CommandLine.Usage = helpMessage
}

func helpMessage() {
	fmt.Println("harvestd")
	fmt.Println("          Staking pool reward harvester")
	fmt.Println("")
	fmt.Println("help      Print this message")
	fmt.Println("init      Construct the harvester from a genesis file")
	fmt.Println("start     Run the harvester")
	fmt.Println("version   Print the app version")
	fmt.Println(`
  -home string
        directory to store files under (default "$HOME/.harvestd")`)
}

func main() {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).
		With("module", "harvest")

	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Println("Missing command:")
		helpMessage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	rest := flag.Args()[1:]

	var err error
	switch cmd {
	case "help":
		helpMessage()
	case "init":
		err = initCmd(logger, *varHome, rest)
	case "start":
		err = startCmd(logger, *varHome, rest)
	case "version":
		fmt.Println(harvest.Version())
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		fmt.Printf("Error: %+v\n\n", err)
		helpMessage()
		os.Exit(1)
	}
}

func loadConfig(home string, fs *flag.FlagSet, args []string) (*Config, error) {
	path := fs.String("config", filepath.Join(home, "config.yaml"), "runtime configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	conf, err := LoadConfig(*path)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	return conf, nil
}

func filtered(logger log.Logger, level string) (log.Logger, error) {
	opt, err := log.AllowLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return log.NewFilter(logger, opt), nil
}

// initCmd constructs the harvester described by the genesis file in a new
// database.
func initCmd(logger log.Logger, home string, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	genesis := fs.String("genesis", filepath.Join(home, "genesis.json"), "genesis file")
	conf, err := loadConfig(home, fs, args)
	if err != nil {
		return err
	}

	gen, err := app.LoadGenesis(*genesis)
	if err != nil {
		return err
	}
	client := rpcclient.NewClient(conf.Relay.URL, conf.Relay.Timeout).WithStatusRetry(conf.Relay.StatusRetry)
	chain, err := conf.chainHead(client)
	if err != nil {
		return err
	}
	head, err := chain.Head(context.Background())
	if err != nil {
		return err
	}

	db, err := store.OpenLevelStore(conf.dataPath(home))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := harvestd.InitStore(db, gen, head); err != nil {
		return err
	}
	logger.Info("harvester initialized", "self", gen.Self, "data", conf.dataPath(home))
	return nil
}

// startCmd runs the engine, the HTTP API and the scheduled triggers until
// the process is interrupted.
func startCmd(logger log.Logger, home string, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	debug := fs.Bool("debug", false, "call stack returned on error")
	conf, err := loadConfig(home, fs, args)
	if err != nil {
		return err
	}
	logger, err = filtered(logger, conf.LogLevel)
	if err != nil {
		return err
	}

	db, err := store.OpenLevelStore(conf.dataPath(home))
	if err != nil {
		return err
	}
	defer db.Close()

	client := rpcclient.NewClient(conf.Relay.URL, conf.Relay.Timeout).WithStatusRetry(conf.Relay.StatusRetry)
	chain, err := conf.chainHead(client)
	if err != nil {
		return err
	}
	engine, err := harvestd.NewEngine(db, harvestd.Options{
		Head:     chain,
		Executor: client,
		Logger:   logger.With("module", "engine"),
		Workers:  conf.Workers,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	sched, err := NewScheduler(ctx, engine, conf.Schedule.Caller, conf.Schedule.Harvest, conf.Schedule.Release, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	dec := harvestd.Router(harvestd.Authenticator())
	srv := &http.Server{
		Addr:         conf.Listen,
		Handler:      NewAPI(engine, dec, conf.Tokens, logger.With("module", "api"), *debug),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
	}
	go func() {
		logger.Info("serving API", "listen", conf.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server", "err", err)
			stop()
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = <-done
	case runErr = <-done:
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		logger.Error("API shutdown", "err", err)
	}
	return runErr
}

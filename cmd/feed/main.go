package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/dlps/feed/pkg/config"
	"github.com/dlps/feed/pkg/database"
	"github.com/dlps/feed/pkg/job"
	"github.com/dlps/feed/pkg/load"
	"github.com/dlps/feed/pkg/registry"
	"github.com/dlps/feed/pkg/version"

	// plugin registration
	_ "github.com/dlps/feed/pkg/plugins"
	_ "github.com/dlps/feed/pkg/steps"
)

type options struct {
	version    bool
	introspect bool
	once       bool
	interval   time.Duration
	batchSize  int
	logLevel   string
}

func gatherOptions(args []string) *options {
	o := &options{}
	fs := pflag.NewFlagSet("feed", pflag.ExitOnError)
	fs.BoolVar(&o.version, "version", false, "Print the version banner and exit.")
	fs.BoolVar(&o.introspect, "Version", false, "Print the version banner plus the loaded plugins and exit.")
	fs.BoolVar(&o.introspect, "introspect", false, "Alias for --Version.")
	fs.BoolVar(&o.once, "once", false, "Run a single scheduling pass instead of looping.")
	fs.DurationVar(&o.interval, "interval", time.Minute, "Delay between scheduling passes.")
	fs.IntVar(&o.batchSize, "batch-size", 100, "Maximum queue rows fetched per scheduling pass.")
	fs.StringVar(&o.logLevel, "log-level", "info", "Logging level.")
	fs.Parse(args)
	return o
}

func main() {
	o := gatherOptions(os.Args[1:])
	if o.version {
		fmt.Println(version.Banner())
		return
	}
	if o.introspect {
		fmt.Println(version.Introspect(registry.Default()))
		return
	}

	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid --log-level")
	}
	logrus.SetLevel(level)

	global, err := load.FromEnvironment()
	if err != nil {
		logrus.WithError(err).Fatal("could not load configuration")
	}
	if err := registry.Default().Validate(func(code string) bool {
		return global.EventConfiguration(code) != nil
	}); err != nil {
		logrus.WithError(err).Fatal("plugin validation failed")
	}

	client, err := database.Connect(global.Database)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to the feed database")
	}
	defer client.Close()

	runner := &job.Runner{
		Engine: &job.Engine{
			Registry: registry.Default(),
			Resolver: config.NewResolver(global),
			Events:   client,
			Backend:  client,
			Journal:  client,
		},
		Queue:     client,
		BatchSize: o.batchSize,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for {
		if err := runner.RunOnce(ctx); err != nil {
			logrus.WithError(err).Error("scheduling pass failed")
		}
		if o.once {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.interval):
		}
	}
}

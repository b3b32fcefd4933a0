package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/newrelic/stripe-env-sync/internal/provider/stripe"

	"github.com/newrelic/stripe-env-sync/internal/sync"
	"github.com/newrelic/stripe-env-sync/internal/tenants"
	"github.com/newrelic/stripe-env-sync/pkg/interop"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile      string
	logLevel        string
	continueOnError bool
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stripe-env-sync [input.csv|input.xlsx]",
		Short: "Copy missing Stripe products, plans and customers from test to live",
		Args:  cobra.MaximumNArgs(1),
		Run:   run,
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file (default configs/config.yml or ./config.yml)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep syncing remaining tenants when one fails")

	return cmd
}

func run(cmd *cobra.Command, args []string) {
	if logLevel != "" {
		viper.Set("log.level", logLevel)
	}

	if continueOnError {
		viper.Set("batch.failFast", false)
	}

	i, err := interop.NewInteroperability(configFile)
	if err != nil {
		fmt.Printf("failed to create interop: %s\n", err)
		os.Exit(1)
	}

	defer i.Shutdown()

	input := viper.GetString("input")
	if len(args) > 0 {
		input = args[0]
	}

	tenantList, err := loadTenants(input)
	if err != nil {
		fmt.Printf("failed to read tenants: %s\n", err)
		i.Shutdown()
		os.Exit(2)
	}

	syncer, err := sync.New(i)
	if err != nil {
		fmt.Printf("sync failed: %s\n", err)
		i.Shutdown()
		os.Exit(3)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	_, err = syncer.Sync(ctx, tenantList)

	stop()
	closeSyncer(i.Logger, syncer)

	if err != nil {
		fmt.Printf("sync failed: %s\n", err)
		i.Shutdown()
		os.Exit(4)
	}
}

func closeSyncer(logger *log.Logger, syncer io.Closer) {
	if err := syncer.Close(); err != nil {
		logger.Warnf("failed to close syncer: %s", err)
	}
}

func loadTenants(input string) ([]tenants.Tenant, error) {
	if input == "" && viper.IsSet("tenants") {
		return tenants.FromConfig()
	}

	return tenants.Read(input)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

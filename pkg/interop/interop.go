package interop

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/integrations/logcontext-v2/nrlogrus"
	"github.com/newrelic/go-agent/v3/newrelic"
	nrclient "github.com/newrelic/newrelic-client-go/newrelic"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Interop struct {
	App      *newrelic.Application
	Logger   *log.Logger
	NrClient *nrclient.NewRelic
}

// NewInteroperability loads configuration from configFile (or the default
// search paths when empty) and wires up the agent, logger and API client.
const EnvPrefix = "STRIPE_SYNC"

func NewInteroperability(configFile string) (*Interop, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	licenseKey := os.Getenv("NEW_RELIC_LICENSE_KEY")

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName("Stripe Environment Sync"),
		newrelic.ConfigLicense(licenseKey),
		newrelic.ConfigEnabled(licenseKey != ""),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, err
	}

	logger := log.New()

	logger.SetLevel(log.WarnLevel)
	logger.SetFormatter(nrlogrus.NewFormatter(app, &log.TextFormatter{}))

	if err := setupConfig(configFile); err != nil {
		return nil, err
	}

	setupLogging(logger)

	nrClient, err := newNrClient()
	if err != nil {
		return nil, err
	}

	return &Interop{App: app, Logger: logger, NrClient: nrClient}, nil
}

func (i *Interop) Shutdown() {
	if i.App != nil {
		i.App.Shutdown(time.Second * 3)
	}
}

// SetupEnv maps config keys onto prefixed environment variables, so that
// lock.redisAddress is read from STRIPE_SYNC_LOCK_REDISADDRESS.
func SetupEnv(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func setupConfig(configFile string) error {
	SetupEnv(viper.GetViper(), EnvPrefix)

	if configFile != "" {
		viper.SetConfigFile(configFile)
		return viper.ReadInConfig()
	}

	viper.SetConfigName("config")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}

func newNrClient() (*nrclient.NewRelic, error) {
	if !viper.GetBool("events.enabled") {
		return nil, nil
	}

	insertKey := viper.GetString("events.insertKey")
	if insertKey == "" {
		insertKey = os.Getenv("NEW_RELIC_INSERT_KEY")
		if insertKey == "" {
			return nil, fmt.Errorf("missing New Relic insert key")
		}
	}

	opts := []nrclient.ConfigOption{nrclient.ConfigInsightsInsertKey(insertKey)}

	if region := viper.GetString("events.region"); region != "" {
		opts = append(opts, nrclient.ConfigRegion(region))
	}

	return nrclient.New(opts...)
}

func setupLogging(logger *log.Logger) {
	logLevel := viper.GetString("log.level")
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			log.Infof("failed to parse log level, default will be used: %s", err)
		} else {
			logger.SetLevel(level)
		}
	}

	if viper.IsSet("log.fileName") {
		file, err := os.OpenFile(
			viper.GetString("log.fileName"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0666,
		)
		if err != nil {
			log.Infof("failed to log to file, using default stderr: %s", err)
		} else {
			logger.Out = file
		}
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/gateway-os/gatewayd/internal/core/application"
	"github.com/gateway-os/gatewayd/internal/core/ports"
	chainclockesplora "github.com/gateway-os/gatewayd/internal/infrastructure/chain-clock/esplora"
	chainclockmanual "github.com/gateway-os/gatewayd/internal/infrastructure/chain-clock/manual"
	"github.com/gateway-os/gatewayd/internal/infrastructure/db"
	inmemorylivestore "github.com/gateway-os/gatewayd/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/gateway-os/gatewayd/internal/infrastructure/live-store/redis"
	blockscheduler "github.com/gateway-os/gatewayd/internal/infrastructure/scheduler/block"
	timescheduler "github.com/gateway-os/gatewayd/internal/infrastructure/scheduler/gocron"
)

var (
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
		"block":  {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedChainClocks = supportedType{
		"esplora": {},
		"manual":  {},
	}
)

type Config struct {
	Datadir  string
	LogLevel int

	DbType              string
	DbDir               string
	LiveStoreType       string
	RedisUrl            string
	RedisTxNumOfRetries int
	SchedulerType       string
	ChainClockType      string
	EsploraURL          string

	ChainDomain     uint32
	WalletContract  common.Hash
	WithdrawalDelay uint64
	BurnSigner      common.Address
	FeeRecipient    common.Address

	repo       ports.RepoManager
	svc        application.Service
	liveStore  ports.LiveStore
	chainClock ports.ChainClock
	scheduler  ports.SchedulerService
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = appDataDir("gatewayd")
	defaultLogLevel            = 4
	defaultDbType              = "badger"
	defaultSchedulerType       = "block"
	defaultLiveStoreType       = "inmemory"
	defaultChainClockType      = "esplora"
	defaultRedisTxNumOfRetries = 10
	defaultEsploraURL          = "https://blockstream.info/api"
	defaultWithdrawalDelay     = 100 // blocks
)

// env returns a list of strings prefixed with `GATEWAYD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("GATEWAYD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	LiveStoreType = &cli.StringFlag{
		Usage: "Cache service type (redis, inmemory)",
		Name:  "live-store-type", EnvVars: env("LIVE_STORE_TYPE"),
		Value: defaultLiveStoreType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if GATEWAYD_LIVE_STORE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	SchedulerType = &cli.StringFlag{
		Usage: "Scheduler type (gocron, block)",
		Name:  "scheduler-type", EnvVars: env("SCHEDULER_TYPE"),
		Value: defaultSchedulerType,
	}

	ChainClockType = &cli.StringFlag{
		Usage: "Chain clock type (esplora, manual)",
		Name:  "chain-clock-type", EnvVars: env("CHAIN_CLOCK_TYPE"),
		Value: defaultChainClockType,
	}

	EsploraURL = &cli.StringFlag{
		Usage: "URL of the esplora-compatible chain indexer",
		Name:  "esplora-url", EnvVars: env("ESPLORA_URL"),
		Value: defaultEsploraURL,
	}

	ChainDomain = &cli.UintFlag{
		Usage: "Numeric identifier of the source chain domain this daemon settles on",
		Name:  "chain-domain", EnvVars: env("CHAIN_DOMAIN"),
	}

	WalletContract = &cli.StringFlag{
		Usage: "32-byte hex identifier of the wallet contract on the source domain",
		Name:  "wallet-contract", EnvVars: env("WALLET_CONTRACT"),
	}

	WithdrawalDelay = &cli.Uint64Flag{
		Usage: "Number of blocks a withdrawal stays pending before it can be claimed",
		Name:  "withdrawal-delay", EnvVars: env("WITHDRAWAL_DELAY"),
		Value: uint64(defaultWithdrawalDelay),
	}

	BurnSigner = &cli.StringFlag{
		Usage: "Address authorized to submit burn batches",
		Name:  "burn-signer", EnvVars: env("BURN_SIGNER"),
	}

	FeeRecipient = &cli.StringFlag{
		Usage: "Address collecting burn fees",
		Name:  "fee-recipient", EnvVars: env("FEE_RECIPIENT"),
	}
)

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var redisUrl string
	if c.String(LiveStoreType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("live store type set to 'redis' but redis url is missing")
		}
	}

	walletContract := c.String(WalletContract.Name)
	if walletContract == "" {
		return nil, fmt.Errorf("wallet contract is required")
	}
	burnSigner := c.String(BurnSigner.Name)
	if burnSigner == "" {
		return nil, fmt.Errorf("burn signer is required")
	}

	feeRecipient := c.String(FeeRecipient.Name)
	if feeRecipient == "" {
		feeRecipient = burnSigner
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		LogLevel:            c.Int(LogLevel.Name),
		DbType:              c.String(DbType.Name),
		DbDir:               dbPath,
		LiveStoreType:       c.String(LiveStoreType.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		SchedulerType:       c.String(SchedulerType.Name),
		ChainClockType:      c.String(ChainClockType.Name),
		EsploraURL:          c.String(EsploraURL.Name),
		ChainDomain:         uint32(c.Uint(ChainDomain.Name)),
		WalletContract:      common.HexToHash(walletContract),
		WithdrawalDelay:     c.Uint64(WithdrawalDelay.Name),
		BurnSigner:          common.HexToAddress(burnSigner),
		FeeRecipient:        common.HexToAddress(feeRecipient),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf(
			"scheduler type not supported, please select one of: %s",
			supportedSchedulers,
		)
	}
	if !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf(
			"live store type not supported, please select one of: %s",
			supportedLiveStores,
		)
	}
	if !supportedChainClocks.supports(c.ChainClockType) {
		return fmt.Errorf(
			"chain clock type not supported, please select one of: %s",
			supportedChainClocks,
		)
	}
	if c.ChainClockType == "esplora" && c.EsploraURL == "" {
		return fmt.Errorf("chain clock type set to 'esplora' but esplora url is missing")
	}
	if c.WithdrawalDelay < 1 {
		return fmt.Errorf("invalid withdrawal delay, must be at least 1 block")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.chainClockService(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) chainClockService() error {
	var svc ports.ChainClock
	var err error
	switch c.ChainClockType {
	case "esplora":
		svc, err = chainclockesplora.NewChainClock(c.EsploraURL)
	case "manual":
		svc = chainclockmanual.NewChainClock()
	default:
		err = fmt.Errorf("unknown chain clock type")
	}
	if err != nil {
		return err
	}

	c.chainClock = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	var err error
	switch c.LiveStoreType {
	case "inmemory":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		liveStoreSvc = redislivestore.NewLiveStore(rdb, c.RedisTxNumOfRetries)
	default:
		err = fmt.Errorf("unknown liveStore type")
	}

	if err != nil {
		return err
	}

	c.liveStore = liveStoreSvc
	return nil
}

func (c *Config) schedulerService() error {
	if c.chainClock == nil {
		return fmt.Errorf("chain clock not set")
	}

	var svc ports.SchedulerService
	var err error
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	case "block":
		svc = blockscheduler.NewScheduler(c.chainClock)
	default:
		err = fmt.Errorf("unknown scheduler type")
	}
	if err != nil {
		return err
	}

	c.scheduler = svc
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.repo, c.liveStore, c.chainClock, c.scheduler, nil,
		c.ChainDomain, [32]byte(c.WalletContract), c.WithdrawalDelay,
		c.BurnSigner, c.FeeRecipient,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

type supportedType map[string]struct{}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

package actors

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"zentry/engine/library"
)

// Settings is the typed view of the viper configuration handed to constructors.
type Settings struct {
	RootDir             string
	FlatFileDir         string
	LogLevel            int
	ListenAddr          string
	Dev                 bool
	StoreBackend        string
	BadgerDir           string
	CacheSize           int64
	HistoryDepth        int
	Weights             WeightSettings
	SourceTimeout       time.Duration
	PipelineTimeout     time.Duration
	ActivityLimit       int
	ChainIndexers       map[string]string
	GitHubAPI           string
	GitHubToken         string
	TwitterAPI          string
	TwitterToken        string
	LinkedInAPI         string
	LinkedInToken       string
	StackExchangeAPI    string
	NostrRelays         []string
	VerifyPages         map[string]string
	IssuerName          string
	CredentialValidity  time.Duration
	RescoreInterval     time.Duration
	RecommendationLimit int
	VoteMinScore        int
	AirdropPivot        int
	AnchorRelays        []string
}

type WeightSettings struct {
	Trustworthiness float64
	Governance      float64
	Technical       float64
	Community       float64
}

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", filepath.Join(homeDir, "zentry")+"/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	SetDefaults(config)
	// Create our working directory and config file if not exist
	initRootDir(config)
	writeBack(config.GetString("rootDir") + "config.yaml")
}

// writeBack adds missing keys to the config file from a viper with no environment binding, so
// values only present in ZENTRY_ variables (tokens in particular) never reach the disk.
func writeBack(file string) {
	Touch(file)
	persist := viper.New()
	setDefaultValues(persist)
	persist.SetConfigType("yaml")
	persist.SetConfigFile(file)
	if err := persist.ReadInConfig(); err != nil {
		library.LogCLI(err.Error(), 4)
	}
	if err := persist.WriteConfig(); err != nil {
		library.LogCLI(err.Error(), 1)
	}
}

// SetDefaults registers every key with its default and enables ZENTRY_ environment overrides.
func SetDefaults(config *viper.Viper) {
	config.SetEnvPrefix("ZENTRY")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaultValues(config)
}

func setDefaultValues(config *viper.Viper) {
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("listenAddr", "127.0.0.1:8645")
	config.SetDefault("dev", false)
	config.SetDefault("store.backend", "memory")
	config.SetDefault("store.badgerDir", "badger/")
	config.SetDefault("store.cacheSize", 10000)
	config.SetDefault("store.historyDepth", 10)

	config.SetDefault("weights.trustworthiness", 0.30)
	config.SetDefault("weights.governance", 0.25)
	config.SetDefault("weights.technical", 0.25)
	config.SetDefault("weights.community", 0.20)

	config.SetDefault("signals.sourceTimeout", 5*time.Second)
	config.SetDefault("signals.pipelineTimeout", 30*time.Second)
	config.SetDefault("signals.activityLimit", 100)
	config.SetDefault("signals.chainIndexers", map[string]string{})
	config.SetDefault("signals.github.api", "https://api.github.com")
	config.SetDefault("signals.github.token", "")
	config.SetDefault("signals.twitter.api", "https://api.twitter.com")
	config.SetDefault("signals.twitter.token", "")
	config.SetDefault("signals.linkedin.api", "")
	config.SetDefault("signals.linkedin.token", "")
	config.SetDefault("signals.stackexchange.api", "https://api.stackexchange.com")
	config.SetDefault("signals.nostrRelays", []string{"wss://nos.lol", "wss://relay.damus.io"})

	config.SetDefault("verify.pages", map[string]string{
		library.Twitter:       "https://x.com/%s",
		library.LinkedIn:      "https://www.linkedin.com/in/%s",
		library.StackOverflow: "https://stackoverflow.com/users/%s",
	})

	config.SetDefault("credentials.issuer", "Zentry")
	config.SetDefault("credentials.validity", 30*24*time.Hour)

	config.SetDefault("rescoreInterval", time.Duration(0))
	config.SetDefault("recommendations.limit", 0)
	config.SetDefault("voting.minScore", 0)
	config.SetDefault("airdrop.multiplierPivot", 50)
	config.SetDefault("anchor.relays", []string{})
}

// LoadSettings reads the typed settings out of a config that has had SetDefaults applied.
func LoadSettings(config *viper.Viper) Settings {
	return Settings{
		RootDir:      config.GetString("rootDir"),
		FlatFileDir:  config.GetString("flatFileDir"),
		LogLevel:     config.GetInt("logLevel"),
		ListenAddr:   config.GetString("listenAddr"),
		Dev:          config.GetBool("dev"),
		StoreBackend: config.GetString("store.backend"),
		BadgerDir:    config.GetString("store.badgerDir"),
		CacheSize:    config.GetInt64("store.cacheSize"),
		HistoryDepth: config.GetInt("store.historyDepth"),
		Weights: WeightSettings{
			Trustworthiness: config.GetFloat64("weights.trustworthiness"),
			Governance:      config.GetFloat64("weights.governance"),
			Technical:       config.GetFloat64("weights.technical"),
			Community:       config.GetFloat64("weights.community"),
		},
		SourceTimeout:       config.GetDuration("signals.sourceTimeout"),
		PipelineTimeout:     config.GetDuration("signals.pipelineTimeout"),
		ActivityLimit:       config.GetInt("signals.activityLimit"),
		ChainIndexers:       config.GetStringMapString("signals.chainIndexers"),
		GitHubAPI:           config.GetString("signals.github.api"),
		GitHubToken:         config.GetString("signals.github.token"),
		TwitterAPI:          config.GetString("signals.twitter.api"),
		TwitterToken:        config.GetString("signals.twitter.token"),
		LinkedInAPI:         config.GetString("signals.linkedin.api"),
		LinkedInToken:       config.GetString("signals.linkedin.token"),
		StackExchangeAPI:    config.GetString("signals.stackexchange.api"),
		NostrRelays:         config.GetStringSlice("signals.nostrRelays"),
		VerifyPages:         config.GetStringMapString("verify.pages"),
		IssuerName:          config.GetString("credentials.issuer"),
		CredentialValidity:  config.GetDuration("credentials.validity"),
		RescoreInterval:     config.GetDuration("rescoreInterval"),
		RecommendationLimit: config.GetInt("recommendations.limit"),
		VoteMinScore:        config.GetInt("voting.minScore"),
		AirdropPivot:        config.GetInt("airdrop.multiplierPivot"),
		AnchorRelays:        config.GetStringSlice("anchor.relays"),
	}
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 0)
		}
	}
}

// Touch creates the file if it does not exist yet.
func Touch(name string) {
	f, err := os.OpenFile(name, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		library.LogCLI(err, 1)
		return
	}
	f.Close()
}

package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/labconnect/internal/resume"
	"github.com/spigell/labconnect/internal/web"
)

const (
	app = "labconnect"
)

type Config struct {
	Labs    *LabsConfig    `mapstructure:"labs"`
	AI      *AIConfig      `mapstructure:"ai"`
	Server  web.Config     `mapstructure:"server"`
	Storage *StorageConfig `mapstructure:"storage"`
}

type LabsConfig struct {
	Backend  string          `mapstructure:"backend"`
	Table    string          `mapstructure:"table"`
	DSN      string          `mapstructure:"dsn"`
	Supabase *SupabaseConfig `mapstructure:"supabase"`
}

type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type StorageConfig struct {
	S3 *resume.S3Config `mapstructure:"s3"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "labconnect matches a student resume against research labs",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"labs.supabase.url":     "SUPABASE_URL",
		"labs.supabase.api-key": "SUPABASE_KEY",
		"labs.dsn":              "LABS_DSN",
		"ai.openai.api-key":     "OPENAI_API_KEY",
		"ai.gemini.api-key":     "GEMINI_API_KEY",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("labs.backend", "supabase")
	viper.SetDefault("labs.table", "labconnect")
	viper.SetDefault("ai.provider", providerOpenAI)
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("ai.gemini.max-retries", 1)
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.max-upload-mb", 10)
	viper.SetDefault("server.session-ttl", "1h")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is labconnect.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without a config file everything comes from defaults and environment.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Labs == nil {
		config.Labs = &LabsConfig{}
	}
	if config.Labs.Supabase == nil {
		config.Labs.Supabase = &SupabaseConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.OpenAI == nil {
		config.AI.OpenAI = &OpenAIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}

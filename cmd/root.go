package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kritgpt/matstat/config"
	"github.com/kritgpt/matstat/pkg/cmd/cli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var c = new(config.Config)
var cmdHandler = cli.NewHandler(c)

var (
	Version   = "dev-master"
	BuildTime = "undefined"
	GitHash   = "undefined"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "matstat",
	Short: "Training session sensor ingestion and realtime broadcast",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

// Execute runs matstat and is called by main.main()
func Execute() {
	c.BuildTime = BuildTime
	c.BuildVersion = Version
	c.BuildHash = GitHash

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.matstat.yml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		// enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigType("yaml")
		viper.SetConfigName(".matstat")          // name of config file (without extension)
		viper.AddConfigPath(absPathify("$HOME")) // adding home directory as first search path
	}
	viper.AutomaticEnv() // read in environment variables that match

	// Fetch settings
	viper.BindEnv("PORT")
	viper.SetDefault("PORT", 5000)

	viper.BindEnv("HOST")
	viper.SetDefault("HOST", "")

	viper.BindEnv("DATABASE_DRIVER")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")

	viper.BindEnv("DATABASE_URL")
	viper.SetDefault("DATABASE_URL", "matstat.db")

	viper.BindEnv("AUTO_MIGRATE")
	viper.SetDefault("AUTO_MIGRATE", true)

	viper.BindEnv("CORS_ALLOWED_ORIGINS")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})

	viper.BindEnv("NATS_URL")
	viper.SetDefault("NATS_URL", "")

	viper.BindEnv("NATS_SUBJECT_PREFIX")
	viper.SetDefault("NATS_SUBJECT_PREFIX", "matstat.v1")

	viper.BindEnv("INFLUX_URL")
	viper.SetDefault("INFLUX_URL", "")

	viper.BindEnv("INFLUX_TOKEN")
	viper.SetDefault("INFLUX_TOKEN", "")

	viper.BindEnv("INFLUX_ORG")
	viper.SetDefault("INFLUX_ORG", "")

	viper.BindEnv("INFLUX_BUCKET")
	viper.SetDefault("INFLUX_BUCKET", "matstat")

	viper.BindEnv("LOG_LEVEL")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.BindEnv("SHUTDOWN_TIMEOUT")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	// If a config file is found, read it in. Environment and defaults are
	// enough to run without one.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatal(fmt.Sprintf("Could not read config file because %s.", err))
		}
	}

	if err := viper.Unmarshal(c); err != nil {
		log.Fatal(fmt.Sprintf("Could not read config because %s.", err))
	}

	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.Fatal(fmt.Sprintf("Invalid log level %q.", c.LogLevel))
	}
	logrus.SetLevel(lvl)
}

func absPathify(inPath string) string {
	if strings.HasPrefix(inPath, "$HOME") {
		inPath = userHomeDir() + inPath[5:]
	}

	if strings.HasPrefix(inPath, "$") {
		end := strings.Index(inPath, string(os.PathSeparator))
		inPath = os.Getenv(inPath[1:end]) + inPath[end:]
	}

	if filepath.IsAbs(inPath) {
		return filepath.Clean(inPath)
	}

	p, err := filepath.Abs(inPath)
	if err == nil {
		return filepath.Clean(p)
	}
	return ""
}

func userHomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		if home == "" {
			home = os.Getenv("USERPROFILE")
		}
		return home
	}
	return os.Getenv("HOME")
}

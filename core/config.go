package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Page formats supported by the SF10 export.
const (
	PageFormatLetter = "letter"
	PageFormatFolio  = "folio" // 215.9 x 330.2 mm
)

type (
	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		FrontendBaseURL  string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Crypto   CryptoConfig
		School   SchoolConfig
		Report   ReportConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		SecretKey                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		LockTTL  time.Duration
	}

	// CryptoConfig holds the reference to the secret used to seal grade scores at rest.
	CryptoConfig struct {
		ScoreSecret string
	}

	// SchoolConfig holds the single-school constants printed on every scholastic record.
	SchoolConfig struct {
		Name       string
		ID         string
		District   string
		Division   string
		Region     string
		Principal  string
		SchoolYear string
	}

	ReportConfig struct {
		PageFormat string
		Scale      int
		DPI        int
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the application configuration.
// Sources, in increasing priority: defaults, `config/.env.<env>` and `<ENV>_*` environment variables.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "SF10 Records")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.secretKey", "")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "sf10")
	v.SetDefault("database.user", "sf10")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lockTTL", 2*time.Minute)

	v.SetDefault("crypto.scoreSecret", "")

	v.SetDefault("school.name", "")
	v.SetDefault("school.id", "")
	v.SetDefault("school.district", "")
	v.SetDefault("school.division", "")
	v.SetDefault("school.region", "")
	v.SetDefault("school.principal", "")
	v.SetDefault("school.schoolYear", "")

	v.SetDefault("report.pageFormat", PageFormatFolio)
	v.SetDefault("report.scale", 2)
	v.SetDefault("report.dpi", 96)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		WorkDir:          workDir,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugHost:                 v.GetString("server.debugHost"),
			SecretKey:                 v.GetString("server.secretKey"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lockTTL"),
		},
		Crypto: CryptoConfig{
			ScoreSecret: v.GetString("crypto.scoreSecret"),
		},
		School: SchoolConfig{
			Name:       v.GetString("school.name"),
			ID:         v.GetString("school.id"),
			District:   v.GetString("school.district"),
			Division:   v.GetString("school.division"),
			Region:     v.GetString("school.region"),
			Principal:  v.GetString("school.principal"),
			SchoolYear: v.GetString("school.schoolYear"),
		},
		Report: ReportConfig{
			PageFormat: strings.ToLower(v.GetString("report.pageFormat")),
			Scale:      v.GetInt("report.scale"),
			DPI:        v.GetInt("report.dpi"),
		},
	}

	if err := conf.check(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

// check refuses to start outside DEV/TEST without the injected secrets.
func (c *Config) check() error {
	if c.Debug || c.TestMode {
		return nil
	}
	if c.Crypto.ScoreSecret == "" {
		return fmt.Errorf("%s_CRYPTO_SCORESECRET is required", c.Env)
	}
	if c.Server.SecretKey == "" {
		return fmt.Errorf("%s_SERVER_SECRETKEY is required", c.Env)
	}
	switch c.Report.PageFormat {
	case PageFormatLetter, PageFormatFolio:
	default:
		return fmt.Errorf("unknown report page format %q", c.Report.PageFormat)
	}
	return nil
}

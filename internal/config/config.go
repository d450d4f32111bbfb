package config

import (
	"context"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	SMS struct {
		AuthKey        string `mapstructure:"auth_key"`
		SenderID       string `mapstructure:"sender_id"`
		Route          string `mapstructure:"route"`
		FlowTemplateID string `mapstructure:"flow_template_id"`
		OTPTemplateID  string `mapstructure:"otp_template_id"`
	} `mapstructure:"sms"`

	// AdminPhone is the fallback worker-visit notification number when
	// the admin_phone system setting is not configured.
	AdminPhone string `mapstructure:"admin_phone"`

	R2 struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
	} `mapstructure:"r2"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "wallfloor-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "wallfloor_db")
	v.SetDefault("sms.route", "4")
	v.SetDefault("r2.region", "auto")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	// MSG91 provider credentials come from the environment in production
	if key := os.Getenv("MSG91_AUTH_KEY"); key != "" {
		cfg.SMS.AuthKey = key
	}
	if sender := os.Getenv("MSG91_SENDER_ID"); sender != "" {
		cfg.SMS.SenderID = sender
	}
	if tpl := os.Getenv("MSG91_FLOW_TEMPLATE_ID"); tpl != "" {
		cfg.SMS.FlowTemplateID = tpl
	}
	if tpl := os.Getenv("MSG91_OTP_TEMPLATE_ID"); tpl != "" {
		cfg.SMS.OTPTemplateID = tpl
	}
	if phone := os.Getenv("DEFAULT_ADMIN_PHONE"); phone != "" {
		cfg.AdminPhone = phone
	}

	// R2 object storage (report uploads, JWT secret recovery)
	if ep := os.Getenv("R2_ENDPOINT"); ep != "" {
		cfg.R2.Endpoint = ep
	}
	if key := os.Getenv("R2_ACCESS_KEY"); key != "" {
		cfg.R2.AccessKey = key
	}
	if key := os.Getenv("R2_SECRET_KEY"); key != "" {
		cfg.R2.SecretKey = key
	}
	if bucket := os.Getenv("R2_BUCKET"); bucket != "" {
		cfg.R2.Bucket = bucket
	}

	// Override JWT secret from environment if not set
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" && cfg.R2.Bucket != "" {
			// Try to fetch from R2 backup (disaster recovery)
			log.Printf("[Config] JWT_SECRET not set, fetching from R2 backup...")
			cfg.JWT.Secret = cfg.fetchJWTSecretFromR2()
			if cfg.JWT.Secret != "" {
				log.Printf("[Config] JWT secret loaded from R2 backup")
			}
		}
		if cfg.JWT.Secret == "" {
			log.Fatal("JWT_SECRET not found in environment or R2 backup")
		}
	}

	return &cfg
}

// fetchJWTSecretFromR2 fetches the JWT secret from the R2 backup bucket
// so a rebuilt node can come up without invalidating issued tokens.
func (c *Config) fetchJWTSecretFromR2() string {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.R2.AccessKey,
			c.R2.SecretKey,
			"",
		)),
		awsconfig.WithRegion(c.R2.Region),
	)
	if err != nil {
		log.Printf("[Config] Failed to configure R2 client: %v", err)
		return ""
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.R2.Endpoint)
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.R2.Bucket),
		Key:    aws.String("config/jwt_secret.txt"),
	})
	if err != nil {
		log.Printf("[Config] Failed to fetch JWT secret from R2: %v", err)
		return ""
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		log.Printf("[Config] Failed to read JWT secret: %v", err)
		return ""
	}

	return string(secret)
}

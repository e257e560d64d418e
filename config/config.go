/*
Copyright 2025 Faregate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT             = "5001"
	DEFAULT_FARE             = 20
	DEFAULT_OPERATOR_ACCOUNT = "operator"
	DEFAULT_MAX_RETRIES      = 4
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"FAREGATE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"FAREGATE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"FAREGATE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"FAREGATE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"FAREGATE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"FAREGATE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FAREGATE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"FAREGATE_REDIS_DNS"`
}

// FareConfig carries the fixed fare policy: the default fare applied when a
// tap arrives without an amount, and the single well-known operator account
// credited by every tap.
type FareConfig struct {
	DefaultAmount   int64  `json:"default_amount" envconfig:"FAREGATE_FARE_DEFAULT_AMOUNT"`
	OperatorAccount string `json:"operator_account" envconfig:"FAREGATE_FARE_OPERATOR_ACCOUNT"`
}

// TransferConfig bounds the engine's optimistic retry loop.
type TransferConfig struct {
	MaxRetryAttempts int `json:"max_retry_attempts" envconfig:"FAREGATE_TRANSFER_MAX_RETRY_ATTEMPTS"`
}

type QueueConfig struct {
	TapQueue       string `json:"tap_queue" envconfig:"FAREGATE_QUEUE_TAP_QUEUE"`
	NumberOfQueues int    `json:"number_of_queues" envconfig:"FAREGATE_QUEUE_NUMBER_OF_QUEUES"`
	WebhookQueue   string `json:"webhook_queue" envconfig:"FAREGATE_QUEUE_WEBHOOK_QUEUE"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"FAREGATE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"FAREGATE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"FAREGATE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"FAREGATE_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Fare         FareConfig       `json:"fare"`
	Transfer     TransferConfig   `json:"transfer"`
	Queue        QueueConfig      `json:"queue"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Notification Notification     `json:"notification"`
	OtlpEndpoint string           `json:"otlp_endpoint" envconfig:"FAREGATE_OTLP_ENDPOINT"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("faregate", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called faregate.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Faregate Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Fare.DefaultAmount <= 0 {
		cnf.Fare.DefaultAmount = DEFAULT_FARE
	}
	if cnf.Fare.OperatorAccount == "" {
		cnf.Fare.OperatorAccount = DEFAULT_OPERATOR_ACCOUNT
	}

	if cnf.Transfer.MaxRetryAttempts <= 0 {
		cnf.Transfer.MaxRetryAttempts = DEFAULT_MAX_RETRIES
	}

	if cnf.Queue.TapQueue == "" {
		cnf.Queue.TapQueue = "new:tap"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.NumberOfQueues <= 0 {
		cnf.Queue.NumberOfQueues = 4
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mockConfig.Fare.DefaultAmount = defaultIfZero(mockConfig.Fare.DefaultAmount, DEFAULT_FARE)
	if mockConfig.Fare.OperatorAccount == "" {
		mockConfig.Fare.OperatorAccount = DEFAULT_OPERATOR_ACCOUNT
	}
	if mockConfig.Transfer.MaxRetryAttempts <= 0 {
		mockConfig.Transfer.MaxRetryAttempts = DEFAULT_MAX_RETRIES
	}
	if mockConfig.Queue.TapQueue == "" {
		mockConfig.Queue.TapQueue = "new:tap"
	}
	if mockConfig.Queue.WebhookQueue == "" {
		mockConfig.Queue.WebhookQueue = "new:webhook"
	}
	if mockConfig.Queue.NumberOfQueues <= 0 {
		mockConfig.Queue.NumberOfQueues = 1
	}
	ConfigStore.Store(mockConfig)
}

func defaultIfZero(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}

package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: ""},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432"},
		Redis:      RedisConfig{Dns: ""},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource:  DataSourceConfig{Dns: "some-dns"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.Fare.DefaultAmount != DEFAULT_FARE {
		t.Errorf("Expected default fare %d, got %d", DEFAULT_FARE, cnf.Fare.DefaultAmount)
	}
	if cnf.Fare.OperatorAccount != DEFAULT_OPERATOR_ACCOUNT {
		t.Errorf("Expected default operator account %s, got %s", DEFAULT_OPERATOR_ACCOUNT, cnf.Fare.OperatorAccount)
	}
	if cnf.Transfer.MaxRetryAttempts != DEFAULT_MAX_RETRIES {
		t.Errorf("Expected default retry attempts %d, got %d", DEFAULT_MAX_RETRIES, cnf.Transfer.MaxRetryAttempts)
	}
	if cnf.Queue.TapQueue != "new:tap" {
		t.Errorf("Expected default tap queue, got %s", cnf.Queue.TapQueue)
	}
	if cnf.Queue.NumberOfQueues != 4 {
		t.Errorf("Expected 4 tap queues, got %d", cnf.Queue.NumberOfQueues)
	}
}

func TestValidateAndAddDefaults_KeepsConfiguredFare(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Fare:       FareConfig{DefaultAmount: 35, OperatorAccount: "metro-north"},
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.Fare.DefaultAmount != 35 {
		t.Errorf("Expected configured fare 35, got %d", cnf.Fare.DefaultAmount)
	}
	if cnf.Fare.OperatorAccount != "metro-north" {
		t.Errorf("Expected configured operator account, got %s", cnf.Fare.OperatorAccount)
	}
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.RateLimit.Burst == nil || *cnf.RateLimit.Burst != 20 {
		t.Errorf("Expected derived burst of 20, got %v", cnf.RateLimit.Burst)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "faregate.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource:  DataSourceConfig{Dns: "temp-dns"},
		Redis:       RedisConfig{Dns: "temp-redis"},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	os.Setenv("FAREGATE_PROJECT_NAME", "Env Project")
	defer os.Unsetenv("FAREGATE_PROJECT_NAME")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile returned error: %v", err)
	}

	cnf, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	// Environment variables override file values.
	if cnf.ProjectName != "Env Project" {
		t.Errorf("Expected project name from env, got %s", cnf.ProjectName)
	}
	if cnf.DataSource.Dns != "temp-dns" {
		t.Errorf("Expected data source from file, got %s", cnf.DataSource.Dns)
	}
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{})
	cnf, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if cnf.Fare.DefaultAmount != DEFAULT_FARE {
		t.Errorf("Expected mock default fare %d, got %d", DEFAULT_FARE, cnf.Fare.DefaultAmount)
	}
	if cnf.Queue.NumberOfQueues != 1 {
		t.Errorf("Expected single mock queue, got %d", cnf.Queue.NumberOfQueues)
	}
}

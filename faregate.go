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

package faregate

import (
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/faregate/faregate/config"
	"github.com/faregate/faregate/database"
	"github.com/faregate/faregate/internal/cache"
	redis_db "github.com/faregate/faregate/internal/redis-db"
)

// SQLFiles holds the embedded schema migrations applied by the migrate
// command.
//
//go:embed sql/*.sql
var SQLFiles embed.FS

// Faregate is the service layer: the ledger engine plus the collaborators it
// is constructed with at startup. The datasource is injected, never reached
// through globals, so tests can swap in a mocked store.
type Faregate struct {
	queue      *Queue
	redis      redis.UniversalClient
	cache      cache.Cache
	datasource database.IDataSource
}

// NewFaregate initializes the service from the loaded configuration: redis
// client, tap queue and the read cache for the API path.
func NewFaregate(db database.IDataSource) (*Faregate, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	return &Faregate{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		cache:      newCache,
	}, nil
}

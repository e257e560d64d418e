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
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"

	"github.com/hibiken/asynq"

	"github.com/faregate/faregate/config"
	redis_db "github.com/faregate/faregate/internal/redis-db"
	"github.com/faregate/faregate/model"
)

// Queue carries tap events from the intake adapter to the worker through
// asynq.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// TapTypePayload represents the payload for a queued tap task.
type TapTypePayload struct {
	Data model.TapEvent
}

// NewQueue initializes the asynq client and inspector from the configured
// redis.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// Enqueue puts a tap event on its rider's queue. The asynq task id is the
// tap's event id, so a redelivered event is rejected as a duplicate while
// the first task is still pending or retained.
func (q *Queue) Enqueue(ctx context.Context, event *model.TapEvent) error {
	ctx, span := tracer.Start(ctx, "Adding tap to redis queue")
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	info, err := q.Client.EnqueueContext(ctx, q.getTask(event, payload), asynq.MaxRetry(5))
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued tap: %+v", event.EventID)

	return nil
}

// getTask shards taps across the configured queues by rider uid hash.
// All taps for one rider land on the same queue and process serially, which
// keeps retries for a rider from racing each other.
func (q *Queue) getTask(event *model.TapEvent, payload []byte) *asynq.Task {
	cnf, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config: %v", err)
		// Use default values if config fetch fails
		return q.getTaskWithDefaults(event, payload)
	}
	queueIndex := hashRiderID(event.UID) % cnf.Queue.NumberOfQueues
	queueName := fmt.Sprintf("%s_%d", cnf.Queue.TapQueue, queueIndex+1)

	taskOptions := []asynq.Option{asynq.TaskID(event.EventID), asynq.Queue(queueName)}
	return asynq.NewTask(queueName, payload, taskOptions...)
}

// Fallback for when the configuration store is not loaded: a single default
// tap queue, so the event is still enqueued rather than dropped.
func (q *Queue) getTaskWithDefaults(event *model.TapEvent, payload []byte) *asynq.Task {
	queueName := "new:tap_1"
	taskOptions := []asynq.Option{asynq.TaskID(event.EventID), asynq.Queue(queueName)}
	return asynq.NewTask(queueName, payload, taskOptions...)
}

// hashRiderID returns a consistent hash value for a rider uid.
func hashRiderID(uid string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(uid))
	return int(hasher.Sum32())
}

// GetTapFromQueue retrieves a queued tap by its event id, checking each
// shard.
func (q *Queue) GetTapFromQueue(eventID string) (*model.TapEvent, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.TapQueue, i)
		task, err := q.Inspector.GetTaskInfo(queueName, eventID)
		if err == nil && task != nil {
			var event model.TapEvent
			if err := json.Unmarshal(task.Payload, &event); err != nil {
				return nil, err
			}
			return &event, nil
		}
	}
	return nil, nil
}

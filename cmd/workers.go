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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"

	"github.com/faregate/faregate"
	"github.com/faregate/faregate/config"
	"github.com/faregate/faregate/internal/apierror"
	redis_db "github.com/faregate/faregate/internal/redis-db"
	"github.com/faregate/faregate/model"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// processTap applies a tap pulled off the Redis queue. Business rejections
// (unknown rider, insufficient funds) are terminal: the tap is rejected and
// the task acknowledged so the queue does not charge twice. Transient
// failures are returned so asynq redelivers the task.
func (f *faregateInstance) processTap(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("faregate.taps.worker").Start(ctx, "Process Tap From Redis Queue")
	defer span.End()

	var event model.TapEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		logrus.Error(err)
		return err
	}

	_, err := f.faregate.ProcessTap(ctx, &event)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) ||
			apierror.Is(err, apierror.ErrInsufficientFunds) ||
			apierror.Is(err, apierror.ErrInvalidInput) {
			return f.faregate.RejectTap(ctx, &event, err)
		}

		logrus.Infof("Tap %s pushed back for retry due to error: %v", event.EventID, err)
		return err
	}

	log.Println(" [*] Tap Processed", event.EventID)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.WebhookQueue] = 3

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.TapQueue, i)
		queues[queueName] = 1
	}
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(f *faregateInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.TapQueue, i)
		mux.HandleFunc(queueName, f.processTap)
	}

	mux.HandleFunc(cfg.Queue.WebhookQueue, faregate.ProcessWebhook)
}

// workerCommands defines the "workers" command that consumes the tap and
// webhook queues.
func workerCommands(f *faregateInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start faregate workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(f, mux)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}

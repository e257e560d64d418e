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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/faregate/faregate/config"
	"github.com/faregate/faregate/model"
)

func TestGetEventFromStatus(t *testing.T) {
	assert.Equal(t, "tap.queued", getEventFromStatus(model.StatusQueued))
	assert.Equal(t, "tap.applied", getEventFromStatus(model.StatusApplied))
	assert.Equal(t, "tap.rejected", getEventFromStatus(model.StatusRejected))
	assert.Equal(t, "tap.unknown", getEventFromStatus("SOMETHING_ELSE"))
}

func TestSendWebhook(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	mockConfig := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	}
	mockConfig.Notification.Webhook.Url = "http://localhost:5001/webhook"
	config.MockConfig(mockConfig)

	testData := NewWebhook{
		Event: "tap.applied",
		Payload: &model.FareTransfer{
			TransferID: "trf_1",
			RiderID:    "rfid-8810",
			Amount:     20,
			Status:     model.StatusApplied,
		},
	}

	err = SendWebhook(testData)
	assert.NoError(t, err)

	tasks := mr.Keys()
	assert.NotEmpty(t, tasks)
}

func TestSendWebhook_SkipsWithoutURL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	err = SendWebhook(NewWebhook{Event: "tap.applied"})
	assert.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestProcessWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "http://example.com/webhook",
		httpmock.NewStringResponder(200, `{"received": true}`))

	mockConfig := &config.Configuration{
		Redis: config.RedisConfig{Dns: "localhost:6379"},
	}
	mockConfig.Notification.Webhook.Url = "http://example.com/webhook"
	mockConfig.Notification.Webhook.Headers = map[string]string{"X-Faregate-Event": "tap.applied"}
	config.MockConfig(mockConfig)

	payload, err := json.Marshal(NewWebhook{
		Event:   "tap.applied",
		Payload: map[string]interface{}{"transfer_id": "trf_1"},
	})
	assert.NoError(t, err)

	task := asynq.NewTask("new:webhook", payload)
	err = ProcessWebhook(context.Background(), task)
	assert.NoError(t, err)

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

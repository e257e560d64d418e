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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/faregate/faregate/api/model"
	"github.com/faregate/faregate/internal/apierror"
)

// RecordTap processes a tap synchronously. Ledger outcomes map onto HTTP
// statuses through the typed error kind; every failure is logged with its
// kind and answered, never propagated as a crash. This path performs no
// deduplication: replaying the same event here is two charges.
func (a Api) RecordTap(c *gin.Context) {
	var newTap model2.RecordTap
	if err := c.ShouldBindJSON(&newTap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newTap.ValidateRecordTap(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	event, err := newTap.ToTapEvent()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.faregate.ProcessTap(c.Request.Context(), event)
	if err != nil {
		logrus.WithField("error_kind", string(apierror.CodeOf(err))).
			Errorf("Transaction failure for %s: %v", event.UID, err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// QueueTap accepts a tap for asynchronous processing. The queue
// deduplicates on event id, so redelivered events are acknowledged without
// enqueueing a second charge.
func (a Api) QueueTap(c *gin.Context) {
	var newTap model2.RecordTap
	if err := c.ShouldBindJSON(&newTap); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newTap.ValidateRecordTap(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	event, err := newTap.ToTapEvent()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.faregate.QueueTap(c.Request.Context(), event)
	if err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetFareTransfer returns one committed transfer.
func (a Api) GetFareTransfer(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	transfer, err := a.faregate.GetFareTransfer(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, transfer)
}

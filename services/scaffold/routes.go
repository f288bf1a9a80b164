// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all scaffold routes with the router.
//
// Description:
//
//	Registers all /v1/scaffold/* endpoints with the given Gin router
//	group. The group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/scaffold/extract - Extract one wrapper's operation surface
//	POST /v1/scaffold/scan - Scan a wrapper directory and rewrite manifests
//	GET  /v1/scaffold/health - Health check
//	GET  /v1/scaffold/events - Websocket stream of scan events
//
// Example:
//
//	service := scaffold.NewService(cfg)
//	handlers := scaffold.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	scaffold.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sc := rg.Group("/scaffold")
	{
		sc.POST("/extract", handlers.HandleExtract)
		sc.POST("/scan", handlers.HandleScan)

		sc.GET("/health", handlers.HandleHealth)
		sc.GET("/events", handlers.HandleEvents)
	}
}

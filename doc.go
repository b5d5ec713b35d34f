// Package rcrt provides RCRT, a multi-tenant, event-sourced breadcrumb
// store with a Context Assembly Engine.
//
// Agents and tools write small, typed, tagged JSON documents — breadcrumbs
// — instead of passing raw context between each other. RCRT persists
// them, derives embeddings and transform hints for each, publishes a
// durable event for every mutation, and assembles per-consumer context
// windows by walking the breadcrumb graph under a token budget.
//
// # Quick Start
//
// Install the server:
//
//	go install github.com/rcrtd/rcrt/cmd/rcrtd@latest
//
// Start it against a config file:
//
//	rcrtd serve --config rcrt.yaml
//
// # Using as a Go Library
//
// Import the packages the breadcrumb store, event bus, and assembly
// engine are built from:
//
//	import (
//	    "github.com/rcrtd/rcrt/pkg/breadcrumb"
//	    "github.com/rcrtd/rcrt/pkg/store"
//	    "github.com/rcrtd/rcrt/pkg/eventbus"
//	    "github.com/rcrtd/rcrt/pkg/assembly"
//	    "github.com/rcrtd/rcrt/pkg/config"
//	)
//
// # Architecture
//
//	Producer → Breadcrumb Store → Embedding & Transform Service
//	                  │                        │
//	                  ▼                        ▼
//	              Event Bus ──────────► Context Assembly Engine
//	                  │                        │
//	                  ▼                        ▼
//	          Hygiene Reaper              Consumer (agent.context.v1)
//
// The store, transform pipeline, event bus, and assembly engine are
// independently addressable components wired together by cmd/rcrtd; the
// HTTP API in pkg/httpapi is the only externally facing surface.
//
// # Alpha Status
//
// RCRT is under active development. APIs may change between releases.
package rcrt

/*
Package events provides the engine's typed event bus.

# Overview

Domain components publish lifecycle notifications (tab created, suspended,
evicted, memory pressure) and the WebSocket layer fans them out to
connected renderer clients. Publishing never blocks the publishing
component: each subscriber owns a buffered channel and slow consumers
lose events rather than stalling a store mutation.

# Usage

	bus := events.New(logger)

	// Subscribe to everything
	ch, cancel := bus.Subscribe()
	defer cancel()

	// Or to selected kinds
	evictions, stop := bus.Subscribe(events.KindTabEvicted, events.KindPressure)
	defer stop()

	bus.Publish(events.Event{
	    Kind:  events.KindTabCreated,
	    TabID: tab.ID,
	    URL:   tab.URL,
	})

# Delivery Semantics

Best-effort, at-most-once per subscriber. Events are ordered per publisher
goroutine. Drops are counted and visible via Dropped for diagnostics.
*/
package events

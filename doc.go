/*
Package modelrelay implements the canonical protocol layer of an AI-provider
gateway: a provider-agnostic request/response/stream-event schema, bidirectional
format adapters between client/provider wire formats and that schema, a
passthrough configuration system that routes models to upstream providers, and
a credential manager that supplies, rotates and retires provider API keys.

# Design Principles

  - Explicit wiring: registries and managers are constructed and injected, never
    reached through package-level singletons
  - Pure adapters: format adapters only transform in-memory payloads, so they
    can be tested without any I/O mocking
  - Soft credential failure: key exhaustion is a temporary signal with a
    cooldown, not a hard lock

# Quick Start

Register the built-in adapters and translate a client payload:

	registry := modelrelay.NewAdapterRegistry()
	formats.RegisterAll(registry)

	adapter, err := registry.Get(formats.FormatOpenAI)
	if err != nil {
	    log.Fatal(err)
	}

	req, err := adapter.(modelrelay.ClientRequestAdapter).RequestToCanonical(body)

# Streaming

Upstream stream events are translated one at a time into canonical events and
folded back into the client's wire format. A stream is a finite, forward-only
sequence terminated by exactly one complete or error event:

	for {
	    ev, err := stream.Next()
	    if err != nil {
	        break
	    }
	    // forward ev in receipt order
	    if ev.Type == modelrelay.EventComplete || ev.Type == modelrelay.EventError {
	        break
	    }
	}
*/
package modelrelay

// Package platform provides the shared infrastructure services for
// family-helper applications: logging, configuration, secrets, database
// access, pub/sub messaging, object storage, caching, feature flags and
// tracing behind stable contracts.
//
// Services are created through the factory, which wires stub
// implementations by default so a new service runs with zero external
// dependencies:
//
//	services, err := platform.New("meal-planner")
//	if err != nil {
//		panic(err)
//	}
//	services.Logger.Info("Service starting", nil)
//
// Production deployments disable stubs and the factory swaps in the
// PostgreSQL, RabbitMQ and S3 adapters, configured through the same
// Config service the application uses.
package platform

import "github.com/schwarzerdavid/family-helper/platform/types"

// Fields is a type alias for structured logging fields.
// It represents a map of key-value pairs for contextual information.
type Fields = types.Fields

// Logger is a type alias for the Logger contract from the types package.
// It provides structured logging with inheritable base fields.
type Logger = types.Logger

// Config is a type alias for the Config contract from the types package.
// It provides typed, cached access to configuration values.
type Config = types.Config

// Secrets is a type alias for the Secrets contract from the types package.
type Secrets = types.Secrets

// Db is a type alias for the Db contract from the types package.
type Db = types.Db

// PubSub is a type alias for the PubSub contract from the types package.
type PubSub = types.PubSub

// ObjectStorage is a type alias for the ObjectStorage contract from the
// types package.
type ObjectStorage = types.ObjectStorage

// Cache is a type alias for the Cache contract from the types package.
type Cache = types.Cache

// FeatureFlags is a type alias for the FeatureFlags contract from the
// types package.
type FeatureFlags = types.FeatureFlags

// Tracer is a type alias for the Tracer contract from the types package.
type Tracer = types.Tracer

// EventEnvelope is a type alias for the event envelope all pub/sub
// implementations deliver.
type EventEnvelope = types.EventEnvelope

// EventHandler is a type alias for the pub/sub subscription callback.
type EventHandler = types.EventHandler

// UnsubscribeFunc is a type alias for the function returned by Subscribe.
type UnsubscribeFunc = types.UnsubscribeFunc

// ObjectMeta is a type alias for the metadata returned by object writes.
type ObjectMeta = types.ObjectMeta

// Span is a type alias for the manual tracing span returned by WithSpan.
type Span = types.Span

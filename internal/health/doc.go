// Package health provides liveness and readiness endpoints for the
// dashboard gateway.
//
// Readiness is computed from registered checks. A failing critical check
// makes the gateway unhealthy; a failing non-critical one (the cache store,
// which the gateway tolerates losing) only degrades it.
//
//	checker := health.NewChecker(version, logger)
//	checker.RegisterDependency(health.PingCheck("cache", health.DependencyTypeCache, store,
//	    health.WithCritical(false)))
//
//	engine.GET("/health", gin.WrapF(checker.HealthHandler()))
//	engine.GET("/ready", gin.WrapF(checker.ReadinessHandler()))
//	engine.GET("/live", gin.WrapF(checker.LivenessHandler()))
package health

// Package resource governs the shared limits of a recommender process.
//
// A Controller tracks three resources:
//
//   - Queries: a weighted semaphore bounds concurrent recommendations so a
//     burst cannot oversubscribe the scoring goroutines.
//
//   - Generator calls: a token bucket caps the rate of embedding requests sent
//     to the model server.
//
//   - Memory: a fail-fast budget for caches such as the embedding LRU.
//
//     rc := resource.NewController(resource.Config{
//     MaxConcurrentQueries: 32,
//     GeneratorRatePerSec:  200,
//     })
//
//     if err := rc.AcquireQuery(ctx); err != nil {
//     return err
//     }
//     defer rc.ReleaseQuery()
//
// All methods are safe for concurrent use, and a nil *Controller imposes no
// limits at all.
package resource

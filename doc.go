// Package songrec recommends songs from a catalog of precomputed latent vectors.
//
// A user's preferences (numeric audio features plus artist, genre and emotion)
// are normalized, encoded and mapped into the latent space by an embedding
// generator. The songs whose vectors are most cosine-similar to the result are
// returned, best first.
//
// # Quick Start
//
//	store := blobstore.NewLocalStore("./data")
//	loader := songrec.NewLoader(songrec.ArtifactSource(artifact.NewLoader(store)))
//	gen := embed.NewHTTPGenerator("http://localhost:8501")
//
//	svc := songrec.New(loader, gen, songrec.WithThreshold(0.6))
//	results, err := svc.Recommend(ctx, &songrec.Request{
//	    Genre: "rock",
//	    Tempo: features.Of(120),
//	    K:     5,
//	})
//
// # Catalog lifecycle
//
// The catalog (normalization parameters, dictionaries and index) is built on
// first use. Concurrent first calls share one build. A failed build is reported
// to every waiting caller and retried by the next call, so a service with
// broken artifacts keeps refusing queries until they are fixed. A loaded
// catalog is immutable and read without locks; Loader.Reload swaps in a new
// version atomically.
//
// # Errors
//
// Errors returned by Service and Loader match one of the package sentinels
// (ErrMissingArtifact, ErrMalformedIndex, ErrEmbedding, ErrInvalidRequest,
// ErrInvalidK) with errors.Is, while the package-level cause stays reachable
// through errors.As.
package songrec

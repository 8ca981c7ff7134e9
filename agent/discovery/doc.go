// Package discovery implements the Scout: path discovery over a single
// registry scope.
//
// Discovery works in five steps:
//
//   - take the agents visible in the active scope (nothing is inherited)
//   - keep the agents whose capabilities intersect the required set
//   - enumerate agent sequences up to a maximum length that respect the
//     capability ordering rules (for example data_retrieval before reasoning)
//   - score each sequence with a configurable Scorer; ties keep declaration order
//   - truncate to the candidate cap
//
// # Basic Usage
//
//	scout, err := discovery.NewScout(reg, discovery.DefaultScoutConfig(), logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	candidates, err := scout.Discover(ctx, reg.Top(), &discovery.Query{
//	    RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning},
//	})
//
// An empty candidate list is a valid outcome meaning no viable path. Only an
// empty scope is an error (NO_AGENTS_VISIBLE).
//
// # Validated paths
//
// Candidates are immutable. Accept and AcceptUnvalidated produce a new
// ValidatedPath, which is the only artifact a path executor runs.
package discovery

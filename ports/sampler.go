package ports

import "github.com/Tubbz-alt/ripples/domain/rrr"

// Sampler is the per-sample primitive: it grows one RRR set from root
// under the given diffusion model, appending to dst and returning the
// canonical (ascending) result.
type Sampler interface {
	Sample(root uint32, rng Stream, model rrr.DiffusionModel, dst rrr.Sample) rrr.Sample
}

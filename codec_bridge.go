package symindex

import "github.com/jward/symindex/internal/codec"

// verifyShardBytes round-trips shard through internal/codec's encoder and
// verifier, giving UpdateController a corruption check before anything
// reaches ShardStore or SqlBackend (spec.md §4.7 step 4: "ask Codec to
// serialize... verify immediately via Codec's verifier").
func verifyShardBytes(shard *Shard) error {
	buf := codec.Encode(shard)
	return codec.Verify(buf)
}

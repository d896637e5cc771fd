package memory

import (
	"encoding/json"
	"fmt"
)

// MarshalBuckets encodes every snapshot bucket as a JSON payload keyed by
// bucket name.
func (s Snapshot) MarshalBuckets() (map[string][]byte, error) {
	buckets := s.Buckets()
	out := make(map[string][]byte, len(buckets))
	for name, target := range buckets {
		data, err := json.Marshal(target)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// UnmarshalBucket decodes a single bucket payload into the snapshot. Unknown
// buckets and empty payloads are ignored so older tables load cleanly.
func (s *Snapshot) UnmarshalBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	target, ok := s.Buckets()[bucket]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

package attrstore

import "errors"

// ErrKeySpaceExhausted is raised (as a panic payload, matching the
// original's std::out_of_range on a fatal ingest-time condition) when more
// than 65,535 distinct attribute keys are interned in one run.
var ErrKeySpaceExhausted = errors.New("attrstore: more than 65535 unique attribute keys")

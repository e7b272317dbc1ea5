package database

import "errors"

// ErrStoreIntegrity signals that the referential invariant between the
// sample table and the encoding table is violated. The affected store must
// not accept further writes until resolved; auto-repair could compound the
// corruption.
var ErrStoreIntegrity = errors.New("store integrity violation")

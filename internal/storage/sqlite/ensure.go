package sqlite

import "github.com/felixgeelhaar/ailevels/internal/assessment"

var _ assessment.Store = (*Store)(nil)

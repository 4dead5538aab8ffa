package app

import (
	"os"
	"sync"
)

// InTestMode reports whether the binary should start up without side effects
// such as opening listeners or connection pools. Smoke tests set
// MERIDIAN_TEST_MODE=1 to exercise main without a running Postgres.
var InTestMode = sync.OnceValue(func() bool {
	return os.Getenv("MERIDIAN_TEST_MODE") == "1"
})

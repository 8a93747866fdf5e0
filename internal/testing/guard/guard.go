package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SPARKLE_TEST_MODE") == "" {
			_ = os.Setenv("SPARKLE_TEST_MODE", "1")
		}
	})
}

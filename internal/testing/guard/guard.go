// Package guard switches the process into test mode when imported, so
// binaries exercised from tests skip their runtime startup.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LISTGRID_TEST_MODE") == "" {
			_ = os.Setenv("LISTGRID_TEST_MODE", "1")
		}
	})
}

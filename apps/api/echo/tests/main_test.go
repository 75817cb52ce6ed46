package tests

import (
	"os"
	"testing"

	"github.com/asmaktab/backend/core"
)

func TestMain(m *testing.M) {
	// error payloads must keep their production shape
	core.Conf.Debug = false
	core.Conf.TestMode = true

	os.Exit(m.Run())
}

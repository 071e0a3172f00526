// File: cmd/scalpel-heal/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("check: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestHandlePanic(t *testing.T) {
	var (
		written []byte
		code    = -1
	)
	osWriteFile = func(name string, data []byte, perm os.FileMode) error {
		assert.Equal(t, panicLogFile, name)
		written = data
		return nil
	}
	osExit = func(c int) { code = c }
	t.Cleanup(func() {
		osWriteFile = os.WriteFile
		osExit = os.Exit
	})

	func() {
		defer handlePanic()
		panic("resolver exploded")
	}()

	require.Equal(t, 2, code)
	assert.Contains(t, string(written), "panic: resolver exploded")
	assert.Contains(t, string(written), "goroutine")
}

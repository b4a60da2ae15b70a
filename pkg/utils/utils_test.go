package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fastRetry() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("SuccessfulOperation", func(t *testing.T) {
		attempts := 0
		operation := func() error {
			attempts++
			if attempts < 2 {
				return errors.New("temporary error")
			}
			return nil
		}

		err := RetryWithBackoff(context.Background(), operation, fastRetry())
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("MaxAttemptsExceeded", func(t *testing.T) {
		attempts := 0
		persistent := errors.New("persistent error")
		operation := func() error {
			attempts++
			return persistent
		}

		err := RetryWithBackoff(context.Background(), operation, fastRetry())
		require.Error(t, err)
		assert.ErrorIs(t, err, persistent)
		assert.Equal(t, DefaultRetryConfig().MaxAttempts, attempts)
	})

	t.Run("NonRetryableError", func(t *testing.T) {
		transient := errors.New("transient")
		cfg := fastRetry()
		cfg.RetryableErrors = []error{transient}

		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			return errors.New("not found")
		}, cfg)
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		operation := func() error {
			attempts++
			cancel()
			return errors.New("error")
		}

		err := RetryWithBackoff(ctx, operation, DefaultRetryConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})
}

func TestAddJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 20; i++ {
		d := addJitter(base, 0.2)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+20*time.Millisecond)
	}
	assert.Equal(t, base, addJitter(base, 0))
}

func TestCacheHelper(t *testing.T) {
	cache := NewCacheHelper()

	t.Run("SetAndGet", func(t *testing.T) {
		cache.Set("key", "value", time.Minute)
		value, exists := cache.Get("key")
		assert.True(t, exists)
		assert.Equal(t, "value", value)
	})

	t.Run("Expiration", func(t *testing.T) {
		cache.Set("temp", "value", time.Millisecond)
		time.Sleep(time.Millisecond * 2)
		_, exists := cache.Get("temp")
		assert.False(t, exists)
	})

	t.Run("NoExpiration", func(t *testing.T) {
		cache.Set("forever", 1, 0)
		time.Sleep(time.Millisecond)
		value, exists := cache.Get("forever")
		assert.True(t, exists)
		assert.Equal(t, 1, value)
	})

	t.Run("DeleteAndClear", func(t *testing.T) {
		cache.Set("a", 1, 0)
		cache.Delete("a")
		_, exists := cache.Get("a")
		assert.False(t, exists)

		cache.Clear()
		assert.Equal(t, 0, cache.Stats().Entries)
	})

	t.Run("Stats", func(t *testing.T) {
		c := NewCacheHelper()
		c.Set("k", "v", 0)
		c.Get("k")
		c.Get("missing")
		stats := c.Stats()
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, 1, stats.Entries)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		cfg := DefaultLogConfig()
		cfg.OutputPath = filepath.Join(t.TempDir(), "logs", "test.log")
		cfg.Console = false

		logger, err := NewLogger(cfg)
		require.NoError(t, err)
		logger.Info("hello", zap.String("dataset", "nuances"))
		require.NoError(t, logger.Sync())

		content, err := os.ReadFile(cfg.OutputPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"hello"`)
		assert.Contains(t, string(content), `"dataset":"nuances"`)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		cfg := DefaultLogConfig()
		cfg.Level = "loud"
		_, err := NewLogger(cfg)
		assert.Error(t, err)
	})
}

func TestLogWriter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewLogWriter(zap.New(core), zapcore.WarnLevel)

	n, err := w.Write([]byte("route registered\n"))
	require.NoError(t, err)
	assert.Equal(t, len("route registered\n"), n)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "route registered", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestSafeGo(t *testing.T) {
	logger := zap.NewExample()

	t.Run("NormalExecution", func(t *testing.T) {
		executed := make(chan bool)
		SafeGo(logger, func() {
			executed <- true
		})
		assert.True(t, <-executed)
	})

	t.Run("PanicRecovery", func(t *testing.T) {
		recovered := make(chan bool)
		SafeGo(logger, func() {
			defer func() {
				recovered <- true
			}()
			panic("test panic")
		})
		assert.True(t, <-recovered)
	})
}

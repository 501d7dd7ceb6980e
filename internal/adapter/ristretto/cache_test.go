package ristretto_test

import (
	"context"
	"testing"
	"time"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/ristretto"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache/cachetest"
)

func TestCompliance(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	cachetest.Run(t, c)
}

func TestReadAfterWrite(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "session_abc", []byte("sealed"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "session_abc"); !ok {
		t.Fatal("expected value to be readable immediately after Set")
	}
}

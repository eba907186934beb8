package cache

import (
	"strconv"
	"testing"
)

func BenchmarkCacheGet(b *testing.B) {
	c := New[string, int](1000, nil)
	for i := range 100 {
		c.Set(strconv.Itoa(i), i)
	}
	for b.Loop() {
		c.Get("50")
	}
}

func BenchmarkCacheSetEvicting(b *testing.B) {
	c := New[int, int](64, nil)
	i := 0
	for b.Loop() {
		c.Set(i, i)
		i++
	}
}

func BenchmarkCacheGetOrCreate(b *testing.B) {
	c := New[string, int](1000, nil)
	keys := make([]string, 100)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	i := 0
	for b.Loop() {
		_, _ = c.GetOrCreate(keys[i%len(keys)], func() (int, error) { return i, nil })
		i++
	}
}

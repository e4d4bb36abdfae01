package controllers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RequestDeduplicator отсекает повторные нажатия: одно действие пользователя не чаще раза в ttl.
type RequestDeduplicator struct {
	locks sync.Map
	now   func() time.Time
}

func NewRequestDeduplicator() *RequestDeduplicator {
	return &RequestDeduplicator{now: time.Now}
}

func dedupKey(userID uint64, action string) string {
	return fmt.Sprintf("%d:%s", userID, action)
}

func (d *RequestDeduplicator) TryAcquire(userID uint64, action string, ttl time.Duration) bool {
	now := d.now()
	expiry := now.Add(ttl)
	key := dedupKey(userID, action)

	for {
		val, loaded := d.locks.LoadOrStore(key, expiry)
		if !loaded {
			return true
		}
		held := val.(time.Time)
		if now.Before(held) {
			return false
		}
		if d.locks.CompareAndSwap(key, held, expiry) {
			return true
		}
	}
}

// Release снимает блокировку, если действие завершилось ошибкой и повтор допустим.
func (d *RequestDeduplicator) Release(userID uint64, action string) {
	d.locks.Delete(dedupKey(userID, action))
}

// Cleanup периодически удаляет истекшие блокировки до отмены ctx.
func (d *RequestDeduplicator) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

func (d *RequestDeduplicator) sweep() {
	now := d.now()
	d.locks.Range(func(key, value interface{}) bool {
		if now.After(value.(time.Time)) {
			d.expire(key, value)
		}
		return true
	})
}

// expire удаляет блокировку, только если ее не успел продлить TryAcquire.
func (d *RequestDeduplicator) expire(key, seen interface{}) bool {
	return d.locks.CompareAndDelete(key, seen)
}

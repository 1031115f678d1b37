package projection

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

// View keeps live filtered snapshots (pending / active / completed) of the
// load collection by following the change feed. It is a disposable cache:
// Rebuild restores it from the store at any time, and consumers must
// tolerate briefly stale reads after a write.
type View struct {
	rdb     *redis.Client
	channel string
	loads   storage.ILoadStorage
	log     logger.ILogger

	mu       sync.RWMutex
	statuses map[string]models.LoadStatus

	sub *redis.PubSub
}

func NewView(rdb *redis.Client, channel string, loads storage.ILoadStorage, log logger.ILogger) *View {
	return &View{
		rdb:      rdb,
		channel:  channel,
		loads:    loads,
		log:      log,
		statuses: make(map[string]models.LoadStatus),
	}
}

// Start seeds the view from the store and begins following the feed.
func (v *View) Start(ctx context.Context) error {
	if err := v.Rebuild(ctx); err != nil {
		return err
	}
	v.sub = v.rdb.Subscribe(ctx, v.channel)
	if _, err := v.sub.Receive(ctx); err != nil {
		return err
	}
	go v.follow()
	return nil
}

func (v *View) Stop() {
	if v.sub != nil {
		_ = v.sub.Close()
	}
}

func (v *View) follow() {
	for msg := range v.sub.Channel() {
		var cm ChangeMessage
		if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
			v.log.Error("bad change message", logger.Error(err))
			continue
		}
		v.apply(cm)
	}
}

func (v *View) apply(cm ChangeMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cm.Deleted {
		delete(v.statuses, cm.LoadID)
		return
	}
	v.statuses[cm.LoadID] = cm.Status
}

// Rebuild replaces the snapshot with the store's current state.
func (v *View) Rebuild(ctx context.Context) error {
	loads, err := v.loads.GetAll(ctx)
	if err != nil {
		return err
	}
	statuses := make(map[string]models.LoadStatus, len(loads))
	for _, l := range loads {
		statuses[l.ID] = l.Status
	}
	v.mu.Lock()
	v.statuses = statuses
	v.mu.Unlock()
	return nil
}

func (v *View) StatusOf(loadID string) (models.LoadStatus, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.statuses[loadID]
	return s, ok
}

func (v *View) Pending() []string {
	return v.filter(func(s models.LoadStatus) bool { return s == models.StatusPending })
}

func (v *View) Active() []string {
	return v.filter(models.LoadStatus.IsActive)
}

func (v *View) Completed() []string {
	return v.filter(func(s models.LoadStatus) bool {
		return s == models.StatusDelivered || s == models.StatusCompleted
	})
}

func (v *View) filter(keep func(models.LoadStatus) bool) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var ids []string
	for id, s := range v.statuses {
		if keep(s) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

package projection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

// ChangeMessage is the change-feed payload published after every committed
// load write. It carries enough for projections to filter without
// re-reading the store.
type ChangeMessage struct {
	LoadID  string            `json:"load_id"`
	Status  models.LoadStatus `json:"status,omitempty"`
	Deleted bool              `json:"deleted,omitempty"`
	At      time.Time         `json:"at"`
}

// Notifier publishes load changes to a redis pub/sub channel. Publish
// failures are logged and dropped; projections tolerate gaps by rebuilding.
type Notifier struct {
	rdb     *redis.Client
	channel string
	log     logger.ILogger
}

var _ storage.IChangeNotifier = (*Notifier)(nil)

func NewNotifier(rdb *redis.Client, channel string, log logger.ILogger) *Notifier {
	return &Notifier{rdb: rdb, channel: channel, log: log}
}

func (n *Notifier) LoadChanged(ctx context.Context, loadID string, status models.LoadStatus) {
	n.publish(ctx, ChangeMessage{LoadID: loadID, Status: status, At: time.Now().UTC()})
}

func (n *Notifier) LoadDeleted(ctx context.Context, loadID string) {
	n.publish(ctx, ChangeMessage{LoadID: loadID, Deleted: true, At: time.Now().UTC()})
}

func (n *Notifier) publish(ctx context.Context, msg ChangeMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("failed to marshal change message", logger.Error(err))
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.log.Error("failed to publish change message",
			logger.String("load_id", msg.LoadID), logger.Error(err))
	}
}
